package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/pkg/jwt"
)

var (
	tokenKeyPath string
	tokenUserID  string
	tokenEmail   string
	tokenRole    string
	tokenExpMins int
	tokenIssuer  string
	tokenJSON    bool
)

// tokenCmd signs a development access token without touching the database
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a development access token",
	Long: `Sign an access token for local testing of protected endpoints.

The key defaults to JWT_PRIVATE_KEY_PATH when --key is not given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keyPath := tokenKeyPath
		issuer := tokenIssuer
		if keyPath == "" || issuer == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if keyPath == "" {
				keyPath = cfg.JWT.PrivateKeyPath
			}
			if issuer == "" {
				issuer = cfg.JWT.Issuer
			}
		}

		signer, err := jwt.NewService(jwt.Config{
			PrivateKeyPath: keyPath,
			Issuer:         issuer,
			ExpirationMins: tokenExpMins,
		})
		if err != nil {
			return fmt.Errorf("create JWT service: %w (generate keys with: make keys-generate)", err)
		}
		return runToken(cmd.OutOrStdout(), signer, tokenUserID, tokenEmail, tokenRole, tokenExpMins, tokenJSON)
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenKeyPath, "key", "", "Path to JWT private key")
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "user:admin-dev", "User ID for the token")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "admin@staffhub.dev", "Email for the token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(model.UserRoleAdmin), "Role for the token")
	tokenCmd.Flags().IntVar(&tokenExpMins, "exp", 60*24*7, "Token expiration in minutes")
	tokenCmd.Flags().StringVar(&tokenIssuer, "issuer", "", "JWT issuer (default JWT_ISSUER)")
	tokenCmd.Flags().BoolVar(&tokenJSON, "json", false, "Output as JSON")
}

// tokenSigner is satisfied by *jwt.Service
type tokenSigner interface {
	Sign(claims jwt.Claims) (string, error)
}

func runToken(out io.Writer, signer tokenSigner, userID, email, role string, expMins int, asJSON bool) error {
	if !model.UserRole(role).IsValid() {
		return fmt.Errorf("unknown role %q", role)
	}

	token, err := signer.Sign(jwt.Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
	})
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_in":   expMins * 60,
			"user_id":      userID,
			"email":        email,
			"role":         role,
		})
	}

	expTime := time.Now().Add(time.Duration(expMins) * time.Minute)
	fmt.Fprintln(out, "Access Token Generated")
	fmt.Fprintln(out, "======================")
	fmt.Fprintf(out, "User ID:  %s\n", userID)
	fmt.Fprintf(out, "Email:    %s\n", email)
	fmt.Fprintf(out, "Role:     %s\n", role)
	fmt.Fprintf(out, "Expires:  %s\n", expTime.Format(time.RFC3339))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Token:")
	fmt.Fprintln(out, token)
	return nil
}
