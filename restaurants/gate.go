package restaurants

// BlockReason is the symbolic reason attached to a non-granting gate
// decision.
type BlockReason string

const (
	ReasonVerificationPending  BlockReason = "verification_pending"
	ReasonVerificationRejected BlockReason = "verification_rejected"
	ReasonAccountSuspended     BlockReason = "account_suspended"
	ReasonAccessDenied         BlockReason = "access_denied"
)

// Redirect targets are symbolic; the client maps them onto its own routes.
const (
	RedirectDashboard          = "/dashboard"
	RedirectVerificationStatus = "/verification-status"
	RedirectSuspended          = "/account-suspended"
	RedirectSupport            = "/support"
)

// Decision is the access-gate outcome. It is a tagged value rather than a
// boolean because each blocked outcome carries its own reason, message and
// redirect target.
type Decision struct {
	Granted  bool        `json:"granted"`
	Reason   BlockReason `json:"reason,omitempty"`
	Message  string      `json:"message,omitempty"`
	Redirect string      `json:"redirect,omitempty"`
}

// EvaluateAccess maps a restaurant's lifecycle pair to an access decision.
// Pure function of the pair: no history, no side effects. Only
// (verified, active) grants access.
//
// The caller owns the coupled side effect: a transition that yields
// ReasonAccountSuspended must also clear the owner's session marker so
// tokens minted while the account was active stop validating.
func EvaluateAccess(verification VerificationStatus, account AccountStatus) Decision {
	switch {
	case verification == VerificationVerified && account == AccountActive:
		return Decision{Granted: true, Redirect: RedirectDashboard}
	case verification == VerificationPending:
		return Decision{
			Reason:   ReasonVerificationPending,
			Message:  "Your restaurant is awaiting verification.",
			Redirect: RedirectVerificationStatus,
		}
	case verification == VerificationRejected:
		return Decision{
			Reason:   ReasonVerificationRejected,
			Message:  "Your restaurant's verification was rejected.",
			Redirect: RedirectVerificationStatus,
		}
	case verification == VerificationVerified && account == AccountSuspended:
		return Decision{
			Reason:   ReasonAccountSuspended,
			Message:  "Your account has been suspended.",
			Redirect: RedirectSuspended,
		}
	default:
		// Unknown combination, e.g. a corrupted status field.
		return Decision{
			Reason:   ReasonAccessDenied,
			Message:  "Access denied.",
			Redirect: RedirectSupport,
		}
	}
}

// EvaluateRestaurant is a convenience wrapper over EvaluateAccess.
func EvaluateRestaurant(r *Restaurant) Decision {
	return EvaluateAccess(r.VerificationStatus, r.AccountStatus)
}
