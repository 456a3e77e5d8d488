package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/models"
)

const (
	maxMediaSize = 10 << 20 // 10 MB
	mediaDir     = "media"
)

// mediaType binds a file extension to the block kind it belongs in and
// the MIME type it is served and sniffed as. The table is the single
// source of truth for what upload_media accepts.
type mediaType struct {
	kind models.NodeKind
	mime string
}

var mediaTypes = map[string]mediaType{
	".png":  {models.KindImage, "image/png"},
	".jpg":  {models.KindImage, "image/jpeg"},
	".jpeg": {models.KindImage, "image/jpeg"},
	".gif":  {models.KindImage, "image/gif"},
	".webp": {models.KindImage, "image/webp"},
	".svg":  {models.KindImage, "image/svg+xml"},
	".pdf":  {models.KindFile, "application/pdf"},
	".mp3":  {models.KindAudio, "audio/mpeg"},
	".wav":  {models.KindAudio, "audio/wave"},
	".mp4":  {models.KindVideo, "video/mp4"},
	".webm": {models.KindVideo, "video/webm"},
}

var safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// uploadResult tells the caller how to reference the stored file: the
// src_url for a media block of the given kind, plus the equivalent
// Markdown snippet.
type uploadResult struct {
	URL      string          `json:"src_url"`
	Kind     models.NodeKind `json:"kind"`
	Markdown string          `json:"markdown"`
}

func (s *Server) uploadMedia(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.files == nil {
		return mcp.NewToolResultError("no media directory configured"), nil
	}

	source, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, sniffedExt, err := resolveSource(ctx, source)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxMediaSize {
		return mcp.NewToolResultError(fmt.Sprintf("media too large: %d bytes (max %d)", len(data), maxMediaSize)), nil
	}

	filename := req.GetString("filename", "")
	if filename == "" {
		filename = filenameFromSource(source, sniffedExt)
	}
	filename = sanitizeFilename(filename)

	ext := strings.ToLower(filepath.Ext(filename))
	mt, ok := mediaTypes[ext]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported media extension: %s", ext)), nil
	}
	if err := checkContent(data, ext, mt); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	dest := filepath.Join(mediaDir, filename)
	if _, readErr := s.files.Read(dest); readErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("media file already exists: %s", dest)), nil
	}
	if err := s.files.Write(dest, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("store media: %v", err)), nil
	}

	srcURL := "/media/" + filename
	md := fmt.Sprintf("[%s](%s)", filename, srcURL)
	if mt.kind == models.KindImage {
		md = "!" + md
	}
	out, _ := json.Marshal(uploadResult{URL: srcURL, Kind: mt.kind, Markdown: md})
	return mcp.NewToolResultText(string(out)), nil
}

// resolveSource turns the url argument into raw bytes plus the extension
// implied by its MIME type, from either a data URI or an HTTP(S) fetch.
func resolveSource(ctx context.Context, source string) ([]byte, string, error) {
	if strings.HasPrefix(source, "data:") {
		return readDataURI(source)
	}
	return download(ctx, source)
}

// readDataURI parses a data:[<mediatype>][;base64],<data> URI.
func readDataURI(uri string) ([]byte, string, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := extForMIME(mime)
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported media type in data URI: %s", mime)
	}
	return data, ext, nil
}

// download fetches media over HTTP(S). Redirect targets get the same host
// check as the initial URL.
func download(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := guardHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return guardHost(req.URL.Hostname())
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxMediaSize {
		return nil, "", fmt.Errorf("media too large: exceeds %d bytes", maxMediaSize)
	}

	ct := strings.Split(resp.Header.Get("Content-Type"), ";")[0]
	return data, extForMIME(ct), nil
}

// guardHost rejects loopback, link-local, and cloud metadata addresses,
// checking every resolved IP for hostnames.
func guardHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	var addrs []net.IP
	if ip := net.ParseIP(host); ip != nil {
		addrs = []net.IP{ip}
	} else {
		resolved, err := net.LookupIP(host)
		if err != nil {
			return nil //nolint:nilerr // let the client surface DNS failures
		}
		addrs = resolved
	}

	for _, ip := range addrs {
		if ip.IsLoopback() {
			return fmt.Errorf("blocked host: loopback address %s", host)
		}
		// Covers 169.254.169.254, the AWS/GCP/Azure metadata endpoint.
		if ip.IsLinkLocalUnicast() {
			return fmt.Errorf("blocked host: link-local address %s", host)
		}
	}
	return nil
}

// filenameFromSource extracts a filename from an HTTP URL path, falling
// back to a UUID with the sniffed extension.
func filenameFromSource(source, sniffedExt string) string {
	if !strings.HasPrefix(source, "data:") {
		if parsed, err := url.Parse(source); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	if sniffedExt == "" {
		sniffedExt = ".bin"
	}
	return uuid.New().String() + sniffedExt
}

// sanitizeFilename strips path separators and unsafe characters.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." {
		name = uuid.New().String()
	}
	return name
}

// checkContent verifies the bytes plausibly are what the extension says.
// Strictness depends on the block kind: images and documents have
// reliable signatures, audio/video containers often sniff as opaque.
func checkContent(data []byte, ext string, mt mediaType) error {
	if ext == ".svg" {
		head := data
		if len(head) > 1024 {
			head = head[:1024]
		}
		if !bytes.Contains(head, []byte("<svg")) {
			return fmt.Errorf("content is not SVG (missing <svg tag)")
		}
		return nil
	}

	detected := strings.Split(http.DetectContentType(data), ";")[0]
	switch mt.kind {
	case models.KindAudio, models.KindVideo:
		if detected != mt.mime && detected != "application/octet-stream" {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	default:
		if detected != mt.mime {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	}
	return nil
}

// extForMIME maps a MIME type back to its canonical extension. Types with
// several spellings or extensions are pinned first; everything else is
// unique in the media table.
func extForMIME(mime string) string {
	switch mime {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "audio/wave", "audio/wav", "audio/x-wav":
		return ".wav"
	}
	for ext, mt := range mediaTypes {
		if mt.mime == mime {
			return ext
		}
	}
	return ""
}
