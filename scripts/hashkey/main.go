// Command hashkey prints the bcrypt hash of an admin API key for ADMIN_API_KEY_HASHES.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/odyssey-erp/odyssey-books/internal/rbac"
)

func main() {
	key := ""
	if len(os.Args) > 1 {
		key = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("read key: %v", err)
		}
		key = line
	}
	key = strings.TrimSpace(key)
	if key == "" {
		log.Fatal("usage: hashkey <api-key>  (or pipe the key on stdin)")
	}
	hash, err := rbac.HashAPIKey(key)
	if err != nil {
		log.Fatalf("hash key: %v", err)
	}
	fmt.Println(hash)
}
