package mailer

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// VerificationEmail письмо со ссылкой подтверждения адреса.
func VerificationEmail(to, firstName, publicURL, token string) models.Email {
	link := strings.TrimRight(publicURL, "/") + "/verify-email?token=" + token
	return models.Email{
		To:      to,
		Subject: "Verify your email for The Direct Tree",
		Text: fmt.Sprintf("Hello %s,\n\nWelcome to The Direct Tree! Please verify your email address by opening the link below:\n\n%s\n\nIf you did not create an account, ignore this email.",
			firstName, link),
		HTML: fmt.Sprintf(`<h2>Welcome to The Direct Tree, %s!</h2>
<p>Please verify your email address to activate your account.</p>
<p><a href="%s">Verify email</a></p>
<p>If you did not create an account, ignore this email.</p>`, html.EscapeString(firstName), html.EscapeString(link)),
	}
}

// TrialEndingEmail напоминание владельцу об окончании пробного периода.
func TrialEndingEmail(to, firstName, businessName string, trialEnd time.Time) models.Email {
	return models.Email{
		To:      to,
		Subject: "Your free trial on The Direct Tree ends soon",
		Text: fmt.Sprintf("Hello %s,\n\nThe free trial for %s ends on %s. Subscribe for $20/month to keep your listing active.",
			firstName, businessName, trialEnd.UTC().Format("January 2, 2006")),
	}
}

// SubscriptionActivatedEmail подтверждение активации подписки.
func SubscriptionActivatedEmail(to, firstName, businessName string) models.Email {
	return models.Email{
		To:      to,
		Subject: "Your subscription is active",
		Text: fmt.Sprintf("Hello %s,\n\nThe subscription for %s is now active. Thank you for listing with The Direct Tree!",
			firstName, businessName),
	}
}

// statusPhrases тексты решений модерации для темы письма.
var statusPhrases = map[models.ModerationStatus]string{
	models.ModerationApproved:  "has been approved",
	models.ModerationRejected:  "was not approved",
	models.ModerationSuspended: "has been suspended",
	models.ModerationPending:   "is awaiting review",
}

// BusinessStatusEmail уведомление о решении модерации.
func BusinessStatusEmail(to, businessName string, status models.ModerationStatus) models.Email {
	phrase, ok := statusPhrases[status]
	if !ok {
		phrase = "has a new status"
	}
	return models.Email{
		To:      to,
		Subject: "Your business listing " + phrase,
		Text:    fmt.Sprintf("Hello,\n\nYour listing %s on The Direct Tree %s.", businessName, phrase),
	}
}
