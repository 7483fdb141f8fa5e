package fasta

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"riboscreen.com/ths/logger"
)

// DefaultRegistryURL is the parts registry XML endpoint.
const DefaultRegistryURL = "https://parts.igem.org/cgi/xml/part.cgi"

// ErrSourceExhausted is returned once the registry retry budget is spent.
var ErrSourceExhausted = errors.New("registry source exhausted")

// RegistryClient fetches trigger panels from the Registry of Standard
// Biological Parts. Each retry reuses the identical request; after Retries
// extra attempts the client gives up with ErrSourceExhausted.
type RegistryClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Retries    int
}

type registryXML struct {
	Parts []struct {
		Name      string `xml:"part_name"`
		ShortDesc string `xml:"part_short_desc"`
		SeqData   string `xml:"sequences>seq_data"`
	} `xml:"part_list>part"`
}

// FromRegistry fetches the named parts with a fixed retry budget.
func (c *RegistryClient) FromRegistry(ctx context.Context, parts []string) (*Panel, error) {
	if len(parts) == 0 {
		return nil, errors.New("registry: at least one part must be requested")
	}
	regLogger := logger.NewLogger("Registry")
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultRegistryURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	url := baseURL + "?part=" + strings.Join(parts, ".")

	var lastErr error
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if attempt > 0 {
			regLogger.Warn().
				Str("url", url).
				Msgf("Registry fetch failed, retrying %d more times", c.Retries-attempt+1)
		}
		panel, err := c.fetchOnce(ctx, httpClient, url, parts)
		if err == nil {
			return panel, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrSourceExhausted, url, lastErr)
}

func (c *RegistryClient) fetchOnce(ctx context.Context, httpClient *http.Client, url string, parts []string) (*Panel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseRegistryXML(parts, body)
}

func parseRegistryXML(parts []string, body []byte) (*Panel, error) {
	var doc registryXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("registry: bad XML: %w", err)
	}
	if len(doc.Parts) != len(parts) {
		return nil, fmt.Errorf("registry: requested %d parts, got %d", len(parts), len(doc.Parts))
	}
	records := make([]Record, len(doc.Parts))
	for i, part := range doc.Parts {
		seq := strings.ToUpper(strings.TrimSpace(part.SeqData))
		if len(seq) == 0 {
			return nil, fmt.Errorf("registry: part %q has no sequence data", parts[i])
		}
		records[i] = Record{
			ID:          parts[i],
			Description: strings.TrimSpace(part.ShortDesc),
			Seq:         seq,
		}
	}
	return &Panel{records: records}, nil
}
