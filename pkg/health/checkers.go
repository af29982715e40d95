package health

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
)

// HTTPCheck returns a CheckFunc that sends GET url with client and reports
// unhealthy on transport errors or 5xx responses. 4xx answers still prove
// the server is reachable.
func HTTPCheck(client *http.Client, url string) CheckFunc {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrap(err, "new request")
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return errors.Errorf("status %d", resp.StatusCode)
		}
		return nil
	}
}
