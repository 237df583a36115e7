// Command keygen writes signing material for the auth service.
//
//	keygen -alg RS256 -priv keys/signing.pem -pub keys/signing.pub.pem
//	keygen -alg ES256 -priv keys/signing.json -pub keys/signing.pub.json -format jwk
//	keygen -alg HS256 -priv keys/secret
//
// JWK output should use a .json extension so the service parses it as JWK.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/aussiebroadwan/currex/pkg/cryptox"
	"github.com/aussiebroadwan/currex/pkg/jwtx"
)

type options struct {
	alg    jwtx.Algorithm
	priv   string
	pub    string
	format string
	bits   int
	force  bool
}

func main() {
	var (
		opts options
		alg  string
	)
	flag.StringVar(&alg, "alg", "RS256", "signing algorithm: RS256, ES256 or HS256")
	flag.StringVar(&opts.priv, "priv", "signing.pem", "output path of the signing key")
	flag.StringVar(&opts.pub, "pub", "", "output path of the verification key (RS256/ES256)")
	flag.StringVar(&opts.format, "format", "pem", "key encoding: pem or jwk")
	flag.IntVar(&opts.bits, "bits", cryptox.MinRSABits, "RSA modulus size")
	flag.BoolVar(&opts.force, "force", false, "overwrite existing files")
	flag.Parse()

	var err error
	if opts.alg, err = jwtx.ParseAlgorithm(alg); err != nil {
		log.Fatalf("keygen: %v", err)
	}
	if err := run(opts); err != nil {
		log.Fatalf("keygen: %v", err)
	}
}

func run(opts options) error {
	if opts.format != "pem" && opts.format != "jwk" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.alg.Symmetric() && opts.pub != "" {
		return errors.New("HS256 has no public key; drop -pub")
	}

	key, err := generate(opts)
	if err != nil {
		return err
	}

	privData, err := encodePrivate(opts, key)
	if err != nil {
		return err
	}
	if err := writeFile(opts.priv, privData, 0o600, opts.force); err != nil {
		return err
	}
	fmt.Printf("wrote %s signing key to %s\n", opts.alg, opts.priv)

	if opts.pub == "" {
		return nil
	}
	pubData, err := encodePublic(opts, key)
	if err != nil {
		return err
	}
	if err := writeFile(opts.pub, pubData, 0o644, opts.force); err != nil {
		return err
	}
	fmt.Printf("wrote %s verification key to %s\n", opts.alg, opts.pub)
	return nil
}

func generate(opts options) (any, error) {
	switch opts.alg {
	case jwtx.RS256:
		return cryptox.GenerateRSAKey(opts.bits)
	case jwtx.ES256:
		return cryptox.GenerateES256Key()
	default:
		secret, err := cryptox.GenerateSecret(cryptox.SecretSize512)
		if err != nil {
			return nil, err
		}
		return []byte(secret), nil
	}
}

func encodePrivate(opts options, key any) ([]byte, error) {
	switch {
	case opts.format == "jwk":
		warnExtension(opts.priv)
		return jwtx.MarshalJWK(opts.alg, key)
	case opts.alg.Symmetric():
		return key.([]byte), nil
	default:
		return cryptox.PrivateKeyPEM(key)
	}
}

func encodePublic(opts options, key any) ([]byte, error) {
	if opts.format == "pem" {
		return jwtx.PublicPEM(opts.alg, key)
	}
	warnExtension(opts.pub)
	pub, err := jwtx.VerificationKey(opts.alg, key)
	if err != nil {
		return nil, err
	}
	return jwtx.MarshalJWK(opts.alg, pub)
}

func warnExtension(path string) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		fmt.Fprintf(os.Stderr, "warning: %s does not end in .json and will be read as PEM\n", path)
	}
}

func writeFile(path string, data []byte, mode os.FileMode, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s exists; use -force to overwrite", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, mode)
}
