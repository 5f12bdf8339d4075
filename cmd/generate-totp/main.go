package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"vesting-backend/internal/services"

	"github.com/pquerna/otp/totp"
)

// generate-totp prints the admin.passwordHash and admin.totpSecret values
// for config.yaml, or with -secret the current code for an existing secret.
func main() {
	account := flag.String("account", "admin", "account name shown in the authenticator app")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password to hash")
	secret := flag.String("secret", "", "print the current code for this base32 secret and exit")
	flag.Parse()

	if *secret != "" {
		code, err := totp.GenerateCode(*secret, time.Now())
		if err != nil {
			log.Fatalf("❌ Error generating TOTP code: %v", err)
		}
		fmt.Printf("Current TOTP Code: %s\n", code)
		fmt.Printf("Valid for: ~30 seconds\n")
		return
	}

	if *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	hash, err := services.HashAdminPassword(*password)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}
	key, err := services.GenerateAdminTOTPKey(*account)
	if err != nil {
		log.Fatalf("❌ Failed to generate TOTP key: %v", err)
	}

	fmt.Println("admin:")
	fmt.Printf("  username: %q\n", *account)
	fmt.Printf("  passwordHash: %q\n", hash)
	fmt.Printf("  totpSecret: %q\n", key.Secret())
	fmt.Println()
	fmt.Println("Authenticator URL:")
	fmt.Println(key.URL())
}
