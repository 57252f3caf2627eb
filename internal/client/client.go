// Package client HTTP клиент API GrantGenius, используемый grantctl и сессией редактора.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grantgenius/grantgenius-backend/internal/dto"
	"github.com/grantgenius/grantgenius-backend/internal/export"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// DefaultTimeout покрывает генерацию черновика, самый долгий запрос API.
const DefaultTimeout = 2 * time.Minute

// Client обращается к /api. Токен передаётся как Bearer.
// Безопасен для использования из нескольких горутин.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет http.Client (удобно в тестах).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken задаёт access токен.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New создаёт клиент. baseURL без /api, например http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token текущий access токен.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken задаёт access токен.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// errorBody тело ошибки сервера.
type errorBody struct {
	Error          string                `json:"error"`
	Code           string                `json:"code"`
	Details        []apperror.FieldError `json:"details"`
	CurrentVersion *int64                `json:"currentVersion"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: marshal: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	u := c.baseURL + "/api" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("client: request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send выполняет запрос и возвращает ответ со статусом < 400.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeServiceUnavailable, "сервер недоступен")
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, decodeError(resp)
}

// decodeError восстанавливает AppError из тела ответа, чтобы вызывающий код
// мог использовать apperror.IsConflict и другие проверки.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
	}

	code := apperror.ErrorCode(body.Code)
	if code == "" {
		code = codeForStatus(resp.StatusCode)
	}

	appErr := apperror.New(code, body.Error)
	appErr.HTTPStatus = resp.StatusCode
	appErr.Details = body.Details
	if body.CurrentVersion != nil {
		appErr.Extra = map[string]any{"currentVersion": *body.CurrentVersion}
	}
	return appErr
}

func codeForStatus(status int) apperror.ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return apperror.ErrCodeValidation
	case http.StatusUnauthorized:
		return apperror.ErrCodeUnauthorized
	case http.StatusForbidden:
		return apperror.ErrCodeForbidden
	case http.StatusNotFound:
		return apperror.ErrCodeNotFound
	case http.StatusConflict:
		return apperror.ErrCodeConflict
	case http.StatusBadGateway:
		return apperror.ErrCodeGenerationFailed
	case http.StatusServiceUnavailable:
		return apperror.ErrCodeServiceUnavailable
	default:
		return apperror.ErrCodeInternal
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req, err := c.newRequest(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}

// Register регистрирует пользователя и запоминает access токен.
func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Tokens.AccessToken)
	return &out, nil
}

// Login входит и запоминает access токен.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, dto.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Tokens.AccessToken)
	return &out, nil
}

// Refresh обменивает refresh токен на новую пару.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*dto.TokensResponse, error) {
	var out struct {
		Tokens dto.TokensResponse `json:"tokens"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", nil, dto.RefreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Tokens.AccessToken)
	return &out.Tokens, nil
}

// ListGrants публичный список активных грантов.
func (c *Client) ListGrants(ctx context.Context, filter models.GrantFilter) ([]models.Grant, error) {
	q := url.Values{}
	for key, value := range map[string]string{
		"category":    filter.Category,
		"region":      filter.Region,
		"fundingBody": filter.FundingBody,
		"search":      filter.Search,
	} {
		if value != "" {
			q.Set(key, value)
		}
	}

	var out struct {
		Grants []models.Grant `json:"grants"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/grants", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Grants, nil
}

// GetGrant грант по ID.
func (c *Client) GetGrant(ctx context.Context, id uuid.UUID) (*models.Grant, error) {
	var out struct {
		Grant *models.Grant `json:"grant"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/grants/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Grant, nil
}

// Generate запускает генерацию черновика.
func (c *Client) Generate(ctx context.Context, req dto.GenerateProposalRequest) (*dto.GeneratedProposal, error) {
	var out struct {
		Proposal dto.GeneratedProposal `json:"proposal"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/proposals/generate", nil, req, &out); err != nil {
		return nil, err
	}
	return &out.Proposal, nil
}

// ListProposals заявки текущего пользователя.
func (c *Client) ListProposals(ctx context.Context) ([]models.ProposalListItem, error) {
	var out struct {
		Proposals []models.ProposalListItem `json:"proposals"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/proposals", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Proposals, nil
}

// GetProposal заявка с грантом.
func (c *Client) GetProposal(ctx context.Context, id uuid.UUID) (*models.ProposalDetails, error) {
	var out struct {
		Proposal *models.ProposalDetails `json:"proposal"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/proposals/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Proposal, nil
}

// UpdateProposal частичное обновление заявки.
func (c *Client) UpdateProposal(ctx context.Context, id uuid.UUID, req dto.UpdateProposalRequest) (*models.WriteResult, error) {
	var out dto.WriteResponse
	if err := c.doJSON(ctx, http.MethodPatch, "/proposals/"+id.String(), nil, req, &out); err != nil {
		return nil, err
	}
	return &models.WriteResult{Version: out.Version, UpdatedAt: out.UpdatedAt}, nil
}

// Autosave сохраняет только текст.
func (c *Client) Autosave(ctx context.Context, id uuid.UUID, req dto.AutosaveRequest) (*models.WriteResult, error) {
	var out dto.WriteResponse
	if err := c.doJSON(ctx, http.MethodPost, "/proposals/"+id.String()+"/autosave", nil, req, &out); err != nil {
		return nil, err
	}
	return &models.WriteResult{Version: out.Version, UpdatedAt: out.UpdatedAt}, nil
}

// DeleteProposal удаляет заявку.
func (c *Client) DeleteProposal(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, "/proposals/"+id.String(), nil, nil, nil)
}

// Export скачивает заявку в выбранном формате.
func (c *Client) Export(ctx context.Context, id uuid.UUID, format export.Format) (*export.Document, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/proposals/"+id.String()+"/export", url.Values{"format": {string(format)}}, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read export: %w", err)
	}

	doc := &export.Document{ContentType: resp.Header.Get("Content-Type"), Body: body}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		doc.Filename = params["filename"]
	}
	return doc, nil
}
