// Command mint-token prints a bearer token for local testing, signed with JWT_SECRET.
//
//	mint-token -sub 0b7e8c1d-2f3a-4b5c-8d9e-0f1a2b3c4d5e -orgs org-1,org-2 -admin
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"volunteermatch/config"
	"volunteermatch/internal/adapters/auth"
	"volunteermatch/internal/domain"
)

func main() {
	sub := flag.String("sub", "", "user id (required)")
	mail := flag.String("email", "", "user email")
	orgs := flag.String("orgs", "", "comma-separated organization ids")
	admin := flag.Bool("admin", false, "grant the admin role")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *sub == "" {
		flag.Usage()
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	v := &domain.Viewer{ID: *sub, Email: *mail, Admin: *admin}
	if *orgs != "" {
		v.Organizations = domain.NormalizeIDs(strings.Split(*orgs, ","))
	}
	token, err := auth.NewJWT(cfg.JWTSecret).Issue(v, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
