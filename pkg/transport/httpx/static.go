package httpx

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/joeydtaylor/steeze-route/pkg/codec"
)

type static struct {
	status int
	header http.Header
	body   []byte
}

// NewStatic returns a mock backend answering every request with the same
// status, headers and body. body is encoded once with c (codec.JSONStrict
// when nil); a nil body produces an empty response.
func NewStatic(status int, header http.Header, body any, c codec.Codec) (http.RoundTripper, error) {
	if c == nil {
		c = codec.JSONStrict
	}
	if status == 0 {
		status = http.StatusOK
	}
	if status < 100 || status > 999 {
		return nil, fmt.Errorf("static: invalid status %d", status)
	}
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	var raw []byte
	if body != nil {
		b, err := c.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("static: encode body: %w", err)
		}
		raw = b
		if h.Get("Content-Type") == "" {
			h.Set("Content-Type", c.ContentType())
		}
	}
	h.Set("Content-Length", strconv.Itoa(len(raw)))
	return &static{status: status, header: h, body: raw}, nil
}

func (s *static) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
		req.Body.Close()
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", s.status, http.StatusText(s.status)),
		StatusCode:    s.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        s.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(s.body)),
		ContentLength: int64(len(s.body)),
		Request:       req,
	}, nil
}
