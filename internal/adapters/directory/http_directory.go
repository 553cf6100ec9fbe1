package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
)

const requestTimeout = 10 * time.Second

// Client implements ports.Directory against the school administration API,
// which owns student and school records. The payment core only reads them
// to snapshot receipt data.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient ports.HTTPClient
	logger     ports.Logger
}

// NewClient creates a directory client
func NewClient(baseURL, apiKey string, httpClient ports.HTTPClient, logger ports.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

type studentPayload struct {
	ID          int64  `json:"id"`
	SchoolID    int64  `json:"school_id"`
	FullName    string `json:"full_name"`
	AdmissionNo string `json:"admission_no"`
	ParentName  string `json:"parent_name"`
	ParentEmail string `json:"parent_email"`
	ParentPhone string `json:"parent_phone"`
}

type schoolPayload struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// GetStudent fetches a student record by id.
func (c *Client) GetStudent(ctx context.Context, id int64) (*models.StudentRecord, error) {
	var payload studentPayload
	if err := c.get(ctx, fmt.Sprintf("/internal/students/%d", id), &payload); err != nil {
		return nil, err
	}
	return &models.StudentRecord{
		ID:          payload.ID,
		SchoolID:    payload.SchoolID,
		FullName:    payload.FullName,
		AdmissionNo: payload.AdmissionNo,
		ParentName:  payload.ParentName,
		ParentEmail: payload.ParentEmail,
		ParentPhone: payload.ParentPhone,
	}, nil
}

// GetSchool fetches a school record by id.
func (c *Client) GetSchool(ctx context.Context, id int64) (*models.SchoolRecord, error) {
	var payload schoolPayload
	if err := c.get(ctx, fmt.Sprintf("/internal/schools/%d", id), &payload); err != nil {
		return nil, err
	}
	return &models.SchoolRecord{
		ID:    payload.ID,
		Name:  payload.Name,
		Email: payload.Email,
		Phone: payload.Phone,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "directory unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "failed to read directory response", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return domain.NewDomainError(domain.ErrorCodePaymentNotFound, "directory record not found").
			WithDetail("endpoint", endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.NewDomainError(domain.ErrorCodeInternalError, "directory request failed").
			WithDetail("status_code", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal directory response: %w", err)
	}
	return nil
}
