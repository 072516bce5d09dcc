package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Brano80/eGarant/verification"
	"github.com/Brano80/eGarant/workspace"
)

// Signer polls a workspace for pending signatures belonging to its user and
// signs them. Losing a race to a duplicate sign is expected under contention.
func Signer(ctx context.Context, svc *workspace.Service, userID, workspaceID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		detail, err := svc.Get(ctx, userID, workspaceID)
		if err != nil {
			// transient under chaos; retry
			sleep(ctx, 30, 50)
			continue
		}

		var mine string
		for _, p := range detail.Participants {
			if p.UserID == userID && p.Status == workspace.ParticipantAccepted {
				mine = p.ID
				break
			}
		}
		if mine == "" {
			sleep(ctx, 30, 50)
			continue
		}

		for _, d := range detail.Documents {
			for _, sig := range d.Signatures {
				if sig.ParticipantID != mine || sig.Status != workspace.SignaturePending {
					continue
				}
				_, err := svc.Sign(ctx, userID, d.ID, fmt.Sprintf("sig-%d", rand.Int63()))
				if err != nil && !errors.Is(err, workspace.ErrAlreadySigned) && ctx.Err() != nil {
					return ctx.Err()
				}
			}
		}
		sleep(ctx, 20, 40)
	}
}

// Uploader keeps attaching documents to the workspace, reopening it when it
// has already completed.
func Uploader(ctx context.Context, svc *workspace.Service, userID, workspaceID, contractID string, stop <-chan struct{}) error {
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		_, err := svc.AttachDocument(ctx, userID, workspaceID, contractID, fmt.Sprintf("Annex %d-%d", i, rand.Intn(1000)), "annex")
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		sleep(ctx, 150, 250)
	}
}

// Reader hammers the read paths that the cascade writes race against.
func Reader(ctx context.Context, svc *workspace.Service, userID, workspaceID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		_, _ = svc.Get(ctx, userID, workspaceID)
		_, _ = svc.SummaryForUser(ctx, userID)
		_, _ = svc.ListAttestations(ctx, userID)
		sleep(ctx, 40, 80)
	}
}

// WalletVerifier drives full verification rounds and replays every callback
// to verify that exactly one resolution wins.
func WalletVerifier(ctx context.Context, svc *verification.Service, companyCode, givenName, familyName string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		resp, err := svc.Initiate(ctx, companyCode)
		if err != nil {
			sleep(ctx, 100, 200)
			continue
		}

		obj, err := svc.RequestObject(ctx, resp.TransactionID)
		if err != nil {
			sleep(ctx, 100, 200)
			continue
		}
		nonce, _ := obj["nonce"].(string)

		token := walletToken(givenName, familyName, nonce)
		if rand.Intn(5) == 0 {
			// stale nonce; must resolve the transaction to error
			token = walletToken(givenName, familyName, "stale-"+nonce)
		}

		// replay the same callback concurrently
		done := make(chan error, 1)
		go func() {
			_, err := svc.Callback(ctx, resp.TransactionID, token)
			done <- err
		}()
		_, err1 := svc.Callback(ctx, resp.TransactionID, token)
		err2 := <-done

		for _, err := range []error{err1, err2} {
			if err != nil && !tolerable(err) && ctx.Err() != nil {
				return ctx.Err()
			}
		}
		sleep(ctx, 120, 200)
	}
}

func tolerable(err error) bool {
	return errors.Is(err, verification.ErrAlreadyResolved) ||
		errors.Is(err, verification.ErrNonceMismatch) ||
		errors.Is(err, verification.ErrMalformedClaim)
}

func walletToken(givenName, familyName, nonce string) string {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"given_name":  givenName,
		"family_name": familyName,
		"nonce":       nonce,
	})
	signed, _ := t.SignedString([]byte("stress-wallet-key"))
	return signed
}

func sleep(ctx context.Context, minMS, maxMS int) {
	d := time.Duration(minMS+rand.Intn(maxMS-minMS)) * time.Millisecond
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
