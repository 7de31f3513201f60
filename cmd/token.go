package cmd

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/pubcask/pubcask/internal/config"
	"github.com/pubcask/pubcask/pkg/duration"
	"github.com/pubcask/pubcask/pkg/logger"
)

var tokenTTL string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a publish token",
	Long:  `Mint a bearer token for the publish endpoints, signed with auth.secret.`,
	Run:   runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenTTL, "ttl", "30d", "token lifetime (e.g. '12h', '30d', '1y', '0' for no expiry)")
}

func runToken(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "error", err)
	}
	if cfg.Auth.Secret == "" {
		logger.Fatal("auth.secret must be set to mint tokens")
	}

	ttl, err := duration.Parse(tokenTTL)
	if err != nil {
		logger.Fatal("Invalid --ttl value", "error", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:   "pubcask",
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(cfg.Auth.Secret))
	if err != nil {
		logger.Fatal("Failed to sign token", "error", err)
	}
	fmt.Println(signed)
}
