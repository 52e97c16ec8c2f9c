// Command apikeygen prints a fresh admin API key for the ADMIN_API_KEY
// environment variable.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

func main() {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		fmt.Fprintln(os.Stderr, "apikeygen:", err)
		os.Exit(1)
	}
	fmt.Printf("ADMIN_API_KEY=%s\n", base64.StdEncoding.EncodeToString(buf))
}
