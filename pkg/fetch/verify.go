package fetch

import (
	"bytes"
	"context"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/pkg/errors"
)

// verifySignature downloads sigURL and checks it as an OpenPGP detached
// signature over data against keyring. Generalizes etnz-apt-repo-builder's
// sign() — which clearsigns a Release file with the same library — from
// "sign what I built" to "verify what I fetched": ReadArmoredKeyRing loads
// the trusted keys and CheckDetachedSignature replaces clearsign.Encode.
func verifySignature(ctx context.Context, keyring openpgp.EntityList, data []byte, sigURL string, maxRetries int) error {
	if keyring == nil {
		return errors.New("signature checking enabled but no keyring loaded")
	}

	tmp, err := os.CreateTemp("", "aept-sig-*")
	if err != nil {
		return errors.Wrap(err, "create temp file for signature")
	}

	tmpPath := tmp.Name()
	tmp.Close()

	defer os.Remove(tmpPath)

	if err := downloadWithRetry(ctx, tmpPath, sigURL, maxRetries); err != nil {
		return errors.Wrap(err, "download signature")
	}

	sig, err := os.Open(tmpPath)
	if err != nil {
		return errors.Wrap(err, "open downloaded signature")
	}
	defer sig.Close()

	if _, err := openpgp.CheckDetachedSignature(keyring, bytes.NewReader(data), sig, nil); err != nil {
		return errors.Wrap(err, "detached signature check failed")
	}

	return nil
}
