// Command keygen prints a fresh base64-encoded key suitable for
// AUTHCORE_SIGNING_KEY or AUTHCORE_ENCRYPTION_KEY.
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"os"

	"github.com/avagner/authcore/internal/crypto"
	"github.com/avagner/authcore/internal/crypto/fieldcipher"
)

func main() {
	n := flag.Int("len", fieldcipher.KeySize, "key length in bytes")
	flag.Parse()

	if *n < fieldcipher.KeySize {
		fmt.Fprintf(os.Stderr, "keygen: keys shorter than %d bytes are not accepted by the service\n", fieldcipher.KeySize)
		os.Exit(1)
	}
	key, err := crypto.RandBytes(*n)
	if err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}
	fmt.Println(base64.StdEncoding.EncodeToString(key))
}
