package handlers

import (
	"encoding/json"
	"encoding/xml"
	"time"

	xhttp "github.com/txtalert/reminder-gateway/pkg/http"
)

const (
	formatJSON = "json"
	formatXML  = "xml"
)

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeXML(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := xml.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "text/xml; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(append([]byte(xml.Header), b...))
}

func writePlain(ctx *xhttp.RequestCtx, status int, body string) {
	ctx.Response.Header.Set("Content-Type", "text/plain; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyString(body)
}

// render writes v as json or xml depending on the {format} path segment.
func render(ctx *xhttp.RequestCtx, format string, status int, v any) {
	if format == formatXML {
		writeXML(ctx, status, v)
		return
	}
	writeJSON(ctx, status, v)
}

type errorBody struct {
	XMLName xml.Name `json:"-" xml:"error"`
	Error   string   `json:"error" xml:",chardata"`
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, errorBody{Error: msg})
}

func renderError(ctx *xhttp.RequestCtx, format string, status int, msg string) {
	render(ctx, format, status, errorBody{Error: msg})
}

// pathFormat reads the {format} route segment, defaulting to json.
func pathFormat(ctx *xhttp.RequestCtx) (string, bool) {
	v, _ := ctx.UserValue("format").(string)
	switch v {
	case "", formatJSON:
		return formatJSON, true
	case formatXML:
		return formatXML, true
	}
	return v, false
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func form(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.PostArgs().Peek(key))
}

func formValues(ctx *xhttp.RequestCtx, key string) []string {
	raw := ctx.PostArgs().PeekMulti(key)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, string(v))
	}
	return out
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
