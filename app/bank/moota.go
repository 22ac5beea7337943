package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const ProviderNameMoota = "moota"

const mootaDateLayout = "2006-01-02 15:04:05"

type MootaConfig struct {
	BaseURL     string
	APIToken    string
	HTTPTimeout time.Duration
}

type MootaClient struct {
	cfg    MootaConfig
	client *http.Client
}

func NewMootaClient(cfg MootaConfig) *MootaClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://app.moota.co/api/v2"
	}

	return &MootaClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *MootaClient) Name() string {
	return ProviderNameMoota
}

func (c *MootaClient) ListMutations(ctx context.Context, start, end time.Time, bankID string) ([]Mutation, error) {
	if strings.TrimSpace(c.cfg.APIToken) == "" {
		return nil, errors.New("moota api token is not configured")
	}

	values := url.Values{}
	if !start.IsZero() {
		values.Set("start_date", start.Format("2006-01-02"))
	}
	if !end.IsZero() {
		values.Set("end_date", end.Format("2006-01-02"))
	}
	if strings.TrimSpace(bankID) != "" {
		values.Set("bank_id", strings.TrimSpace(bankID))
	}

	endpoint := c.cfg.BaseURL + "/mutation"
	if encoded := values.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("moota list mutations failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	mutations := make([]Mutation, 0, len(payload.Data))
	for _, raw := range payload.Data {
		mutation, err := parseMootaMutation(raw)
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, mutation)
	}

	return mutations, nil
}

// ParseWebhookMutation decodes one mutation record as delivered by the
// aggregator's webhook, which uses the same wire shape as the list endpoint.
func ParseWebhookMutation(raw json.RawMessage) (Mutation, error) {
	return parseMootaMutation(raw)
}

func parseMootaMutation(raw json.RawMessage) (Mutation, error) {
	var record struct {
		MutationID    string          `json:"mutation_id"`
		BankID        string          `json:"bank_id"`
		AccountNumber string          `json:"account_number"`
		Date          string          `json:"date"`
		Amount        json.RawMessage `json:"amount"`
		Description   string          `json:"description"`
		Type          string          `json:"type"`
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return Mutation{}, err
	}

	amount, err := parseAmount(record.Amount)
	if err != nil {
		return Mutation{}, fmt.Errorf("moota mutation %s: %w", record.MutationID, err)
	}

	mutation := Mutation{
		MutationID:    strings.TrimSpace(record.MutationID),
		BankID:        strings.TrimSpace(record.BankID),
		AccountNumber: strings.TrimSpace(record.AccountNumber),
		Amount:        amount,
		Description:   record.Description,
		Type:          strings.ToUpper(strings.TrimSpace(record.Type)),
		Raw:           string(raw),
	}

	if date := strings.TrimSpace(record.Date); date != "" {
		parsed, err := time.Parse(mootaDateLayout, date)
		if err != nil {
			parsed, err = time.Parse("2006-01-02", date)
		}
		if err == nil {
			mutation.Date = parsed
		}
	}
	if mutation.Date.IsZero() {
		mutation.Date = time.Now().UTC()
	}

	return mutation, nil
}

// The aggregator reports amounts both as JSON numbers and as quoted
// decimal strings, depending on endpoint version. Everything is rupiah
// with a fractional part of zero.
func parseAmount(raw json.RawMessage) (int64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, nil
	}
	trimmed = strings.Trim(trimmed, `"`)

	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", trimmed)
	}
	return int64(f), nil
}
