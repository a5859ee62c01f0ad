package commands

import (
	"fmt"
	"time"

	v1 "github.com/ardanlabs/ledger/business/web/v1"
	"github.com/go-resty/resty/v2"
)

// client performs requests against one of the node apis.
type client struct {
	resty *resty.Client
}

func newClient(baseURL string) client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Minute).
		SetHeader("Content-Type", "application/json")

	return client{resty: r}
}

func (c client) get(path string, result any) error {
	var errResp v1.ErrorResponse
	resp, err := c.resty.R().
		SetResult(result).
		SetError(&errResp).
		Get(path)

	return check(resp, err, &errResp)
}

func (c client) post(path string, body any, result any) error {
	var errResp v1.ErrorResponse
	req := c.resty.R().
		SetResult(result).
		SetError(&errResp)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Post(path)

	return check(resp, err, &errResp)
}

func check(resp *resty.Response, err error, errResp *v1.ErrorResponse) error {
	if err != nil {
		return err
	}

	if resp.IsError() {
		if errResp.Kind != "" {
			return fmt.Errorf("%s: %s: %s", resp.Status(), errResp.Kind, errResp.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status(), errResp.Error)
	}

	return nil
}
