package paypal

import "time"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type money struct {
	Currency string `json:"currency,omitempty"`
	Value    string `json:"value,omitempty"`
}

type planRef struct {
	ID string `json:"id"`
}

type payer struct {
	PaymentMethod string `json:"payment_method"`
}

type agreementRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	StartDate   string  `json:"start_date"`
	Plan        planRef `json:"plan"`
	Payer       payer   `json:"payer"`
}

type agreementDetails struct {
	NextBillingDate *time.Time `json:"next_billing_date,omitempty"`
}

type agreementResponse struct {
	ID               string           `json:"id"`
	State            string           `json:"state"`
	Links            []link           `json:"links"`
	AgreementDetails agreementDetails `json:"agreement_details"`
}

type stateDescriptor struct {
	Note string `json:"note"`
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	ReferenceID string      `json:"reference_id,omitempty"`
	Description string      `json:"description,omitempty"`
	Amount      orderAmount `json:"amount"`
}

type applicationContext struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type orderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
}

type errorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Desc    string `json:"error_description"`
}

func (e errorResponse) String() string {
	switch {
	case e.Message != "":
		return e.Name + ": " + e.Message
	case e.Desc != "":
		return e.Error + ": " + e.Desc
	}
	return e.Name
}

func findLink(links []link, rel string) string {
	for _, l := range links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}
