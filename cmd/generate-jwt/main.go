package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"vesting-backend/internal/config"
	"vesting-backend/internal/services"

	"github.com/ethereum/go-ethereum/common"
)

// generate-jwt issues a wallet session token without the login challenge,
// for scripting against a local server.
func main() {
	configPath := flag.String("config", "", "config file; auth.jwtSecret is read from it when -secret is empty")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "JWT signing secret")
	address := flag.String("address", "", "wallet address to issue the token for")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if !common.IsHexAddress(*address) {
		flag.Usage()
		os.Exit(2)
	}
	if *secret == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("❌ No -secret given and config could not be loaded: %v", err)
		}
		*secret = cfg.Auth.JWTSecret
	}

	authService := services.NewAuthService(*secret, *ttl, time.Minute)
	wallet := common.HexToAddress(*address)
	token, err := authService.IssueToken(wallet, services.RoleUser)
	if err != nil {
		log.Fatalf("❌ Error generating token: %v", err)
	}

	fmt.Println("============================================================")
	fmt.Println("JWT Token Generated")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println(token)
	fmt.Println()
	fmt.Printf("  Address: %s\n", wallet.Hex())
	fmt.Printf("  Expires: %s\n", time.Now().Add(*ttl).Format(time.RFC3339))
	fmt.Println()
	fmt.Printf("curl -H 'Authorization: Bearer %s' ...\n", token)
}
