// Command hashgen produces argon2id password hashes for the admin user
// environment variables (ADMIN_PASSWORD_HASH, LEE_PASSWORD_HASH).
//
// Usage:
//
//	hashgen <password>
//	hashgen            (prompts and reads one line from stdin)
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	pkgauth "github.com/biyuboxing/adminauth/pkg/auth"
)

func main() {
	password, err := readPassword()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}

func readPassword() (string, error) {
	if len(os.Args) > 1 {
		return os.Args[1], nil
	}

	fmt.Fprint(os.Stderr, "password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return password, nil
}
