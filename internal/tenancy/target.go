package tenancy

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TargetParam is the path, query and body key naming a target tenant.
const TargetParam = "tenantId"

const defaultBodyLimit = 1 << 20

var (
	ErrBodyTooLarge  = errors.New("tenancy: request body too large")
	ErrInvalidTarget = errors.New("tenancy: tenantId must be a string")
)

// TargetTenant returns the tenant explicitly named by the request: path
// parameter, then query parameter, then JSON body field. The first non-empty
// value wins. The body is inspected whatever its Content-Type, since handlers
// decode it as JSON regardless. A consumed body is restored for downstream
// handlers.
func TargetTenant(c *gin.Context, bodyLimit int64) (string, error) {
	if v := strings.TrimSpace(c.Param(TargetParam)); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(c.Query(TargetParam)); v != "" {
		return v, nil
	}
	return bodyTarget(c.Request, bodyLimit)
}

func bodyTarget(req *http.Request, limit int64) (string, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return "", nil
	}
	if limit <= 0 {
		limit = defaultBodyLimit
	}

	raw, err := io.ReadAll(io.LimitReader(req.Body, limit+1))
	if err != nil {
		return "", err
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if int64(len(raw)) > limit {
		return "", ErrBodyTooLarge
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		// Not an object; the handler reports malformed input itself.
		return "", nil
	}
	v, ok := fields[TargetParam]
	if !ok || string(v) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", ErrInvalidTarget
	}
	return strings.TrimSpace(s), nil
}
