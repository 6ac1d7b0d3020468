// Package fixtures creates staffing records for database-backed tests.
//
// Factories insert through the repositories, so fixtures exercise the same
// queries the services run:
//
//	tdb := testdb.New(t)
//	f := fixtures.New(tdb.DB)
//	recruiter := f.CreateUser(t)
//	acct := f.CreateAccount(t, recruiter)
//	job := f.CreateJob(t, acct, recruiter)
//	cand := f.CreateCandidate(t, recruiter)
//
// Option functions adjust defaults before insert:
//
//	admin := f.CreateUser(t, fixtures.WithRole(model.UserRoleAdmin))
package fixtures
