package mpesa

import (
	"encoding/json"
	"fmt"
)

// CallbackResult is the out-of-band confirmation Daraja posts once the
// payer acted on the STK prompt. ResultCode 0 means the debit went through.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Receipt           string
	Amount            float64
	Phone             string
}

func (r CallbackResult) Successful() bool { return r.ResultCode == 0 }

type callbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string          `json:"Name"`
					Value json.RawMessage `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback decodes the Daraja callback envelope and flattens the
// metadata items. Metadata values arrive as mixed strings and numbers.
func ParseCallback(body []byte) (CallbackResult, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return CallbackResult{}, fmt.Errorf("mpesa callback: decode: %w", err)
	}
	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return CallbackResult{}, fmt.Errorf("mpesa callback: missing CheckoutRequestID")
	}

	out := CallbackResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			_ = json.Unmarshal(item.Value, &out.Receipt)
		case "Amount":
			_ = json.Unmarshal(item.Value, &out.Amount)
		case "PhoneNumber":
			// Daraja sends the phone as a bare number.
			var n int64
			if err := json.Unmarshal(item.Value, &n); err == nil {
				out.Phone = fmt.Sprintf("%d", n)
			} else {
				_ = json.Unmarshal(item.Value, &out.Phone)
			}
		}
	}
	return out, nil
}
