// Package repository implements the data access layer for the StaffHub API.
//
// Each repository wraps a database.Database and owns the SurrealQL for one
// aggregate: users and refresh tokens, accounts and deals, jobs, candidates,
// submissions, offers and placements, the academy (courses, sprints,
// enrollments, quizzes), campaigns, GDPR requests, audit entries and schema
// migrations.
//
// # Repository Pattern
//
//   - NewXxxRepository accepts a database.Database
//   - Methods take a context and return model structs
//   - A missing record is (nil, nil); services turn that into their own
//     not-found error
//   - Unique index violations surface as database.ErrDuplicate
//
// # Query Patterns
//
//   - Parameterized queries with $variable syntax
//   - type::record() for ids passed in from callers
//   - time::now() for timestamps
//   - fieldSet builds CONTENT objects and SET lists from optional fields
//   - Multi-statement writes (accepting an offer, enrolling into a sprint,
//     applying a migration) go through database.ExecuteTransaction
//
// # Example Usage
//
//	repo := NewCandidateRepository(db)
//	c, err := repo.GetByEmail(ctx, "ada@example.com")
//	if err != nil {
//	    return err
//	}
//	if c == nil {
//	    // not found
//	}
package repository
