// Package mpesa is the Daraja (Safaricom M-Pesa) STK push adapter. It owns
// the gateway wire shapes and translates them into the checkout contract.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kmaina-dev/storefront-core/internal/checkout"
)

const (
	tokenPath   = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"
)

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
	Timeout        time.Duration
}

type Client struct {
	HTTP *http.Client
	cfg  Config
	now  func() time.Time
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		HTTP: &http.Client{Timeout: timeout},
		cfg:  cfg,
		now:  time.Now,
	}
}

// Token fetches an OAuth access token via client credentials.
func (c *Client) Token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("mpesa auth: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mpesa auth: unexpected status %s", res.Status)
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("mpesa auth: decode: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("mpesa auth: empty access token")
	}
	return body.AccessToken, nil
}

// stkPushPayload is the Daraja request body.
type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse covers both the success fields and the error object
// Daraja returns on rejected requests.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`

	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// RequestPush implements checkout.Gateway. A non-nil error means transport
// failure (outcome indeterminate); any parsed gateway response is
// classified into the ack instead.
func (c *Client) RequestPush(ctx context.Context, req checkout.PaymentRequest) (checkout.PaymentAck, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return checkout.PaymentAck{}, err
	}

	ts := c.now().Format("20060102150405")
	payload := stkPushPayload{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          c.password(ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount.IntPart(),
		PartyA:            req.SubscriberPhone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       req.SubscriberPhone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.Description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return checkout.PaymentAck{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+stkPushPath, bytes.NewReader(body))
	if err != nil {
		return checkout.PaymentAck{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return checkout.PaymentAck{}, fmt.Errorf("mpesa stk push: %w", err)
	}
	defer res.Body.Close()

	var out STKPushResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		log.WithField("status", res.Status).Warn("mpesa: unparseable stk push response")
		return checkout.PaymentAck{Status: checkout.AckUnknown}, nil
	}
	return classify(out), nil
}

// classify maps a Daraja response onto the checkout ack taxonomy.
func classify(res STKPushResponse) checkout.PaymentAck {
	switch {
	case res.ResponseCode == "0" || res.CheckoutRequestID != "":
		return checkout.PaymentAck{
			Status:          checkout.AckAccepted,
			TrackingRef:     res.CheckoutRequestID,
			CustomerMessage: res.CustomerMessage,
		}
	case res.ErrorMessage != "":
		return checkout.PaymentAck{Status: checkout.AckRejected, Message: res.ErrorMessage}
	case res.ResponseDescription != "":
		return checkout.PaymentAck{Status: checkout.AckRejected, Message: res.ResponseDescription}
	default:
		return checkout.PaymentAck{Status: checkout.AckUnknown}
	}
}

func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))
}

var _ checkout.Gateway = (*Client)(nil)
