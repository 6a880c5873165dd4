package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"desktop-realtime/internal/model"
	"desktop-realtime/internal/realtime"
)

// DefaultTimeout ctx 에 데드라인이 없을 때 요청 타임아웃
const DefaultTimeout = 10 * time.Second

var ErrNotFound = errors.New("not found")

// StatusError 2xx 가 아닌 응답
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.Status)
}

// Is 404 면 ErrNotFound 와 매칭
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == fasthttp.StatusNotFound
}

type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// 테스트에서 in-memory 리스너 주입
	Dial fasthttp.DialFunc
}

// Client 데스크톱 REST API 클라이언트 (Bearer 토큰)
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *fasthttp.Client
}

// New 생성자
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		timeout: opts.Timeout,
		http: &fasthttp.Client{
			Name:                "deskctl",
			Dial:                opts.Dial,
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
}

func desktopPath(desktopID int64, rest string) string {
	return fmt.Sprintf("/api/desktops/%d%s", desktopID, rest)
}

// FetchDetail 데스크톱 + 에셋 + 공유 목록
func (c *Client) FetchDetail(ctx context.Context, desktopID int64) (*model.DesktopDetail, error) {
	var detail model.DesktopDetail
	if err := c.do(ctx, fasthttp.MethodGet, desktopPath(desktopID, ""), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// AddAsset 에셋 추가 후 저장된 레코드 반환
func (c *Client) AddAsset(ctx context.Context, desktopID int64, asset model.DesktopAsset) (*model.DesktopAsset, error) {
	var created model.DesktopAsset
	if err := c.do(ctx, fasthttp.MethodPost, desktopPath(desktopID, "/assets"), asset, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateAsset(ctx context.Context, desktopID, assetID int64, patch model.AssetPatch) error {
	return c.do(ctx, fasthttp.MethodPatch, desktopPath(desktopID, fmt.Sprintf("/assets/%d", assetID)), patch, nil)
}

// RemoveAsset 에셋 삭제. 이미 없어도 에러 아님
func (c *Client) RemoveAsset(ctx context.Context, desktopID, assetID int64) error {
	err := c.do(ctx, fasthttp.MethodDelete, desktopPath(desktopID, fmt.Sprintf("/assets/%d", assetID)), nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// BatchUpdateAssets 배치 이동
func (c *Client) BatchUpdateAssets(ctx context.Context, desktopID int64, moves []model.AssetMove) error {
	body := struct {
		Moves []model.AssetMove `json:"moves"`
	}{moves}
	return c.do(ctx, fasthttp.MethodPost, desktopPath(desktopID, "/assets/batch"), body, nil)
}

// BatchRemoveAssets 배치 삭제
func (c *Client) BatchRemoveAssets(ctx context.Context, desktopID int64, ids []int64) error {
	body := struct {
		AssetIDs []int64 `json:"assetIds"`
	}{ids}
	return c.do(ctx, fasthttp.MethodPost, desktopPath(desktopID, "/assets/batch-delete"), body, nil)
}

func (c *Client) SaveViewport(ctx context.Context, desktopID int64, v model.ViewportState) error {
	return c.do(ctx, fasthttp.MethodPut, desktopPath(desktopID, "/viewport"), v, nil)
}

// Presence 채널 접속 세션 목록
func (c *Client) Presence(ctx context.Context, desktopID int64) ([]realtime.Sender, error) {
	var out struct {
		Sessions []realtime.Sender `json:"sessions"`
	}
	if err := c.do(ctx, fasthttp.MethodGet, desktopPath(desktopID, "/presence"), nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if c.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+c.token)
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(data)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(resp.Body(), &e)
		return &StatusError{Method: method, Path: path, Status: status, Message: e.Error}
	}

	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}
