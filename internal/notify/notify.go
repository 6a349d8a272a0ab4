// Package notify delivers onboarding notices to invited users.
//
// The invitation flow treats notification as best-effort fire-and-forget: a
// failed send is logged and never rolls back the membership or identity that
// was just created. The invited user can always be re-invited.
package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mlecanu/ilconto/internal/model"
)

// Notifier sends an onboarding notice to a freshly provisioned identity.
//
// Implementations must not mutate any of the passed models. Errors are
// advisory — callers log them and move on.
type Notifier interface {
	SendOnboardingNotice(ctx context.Context, to *model.Identity, board *model.Board, inviter *model.Identity, activationURL string) error
}

// ActivationURL builds the link embedded in onboarding notices:
//
//	{baseURL}/activate/{identityID}?hash={activationHash}
//
// baseURL is the frontend origin (FRONT_APP_URL), not this API server — the
// frontend renders the activation form and posts the credentials back here.
func ActivationURL(baseURL string, identity *model.Identity) string {
	return fmt.Sprintf("%s/activate/%s?hash=%s",
		baseURL, identity.ID, url.QueryEscape(identity.ActivationHash))
}
