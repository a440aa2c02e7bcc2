// Package mcpclient talks to the external calendar and contacts tool
// providers over the Model Context Protocol (stdio transport).
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lunabot/luna/internal/apperr"
)

// Provider is one MCP stdio server reachable through a launcher command.
type Provider struct {
	name   string
	client *client.Client
}

// New launches the provider process and performs the MCP handshake.
// The command string is split on whitespace, e.g. "uv run mcp-google-calendar".
func New(ctx context.Context, name, command string) (*Provider, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty provider command for %s", apperr.ErrValidation, name)
	}

	c, err := client.NewStdioMCPClient(fields[0], nil, fields[1:]...)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s provider: %w", name, err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "luna",
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initRequest); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize %s provider: %w", name, err)
	}

	return &Provider{name: name, client: c}, nil
}

func (p *Provider) Close() error {
	return p.client.Close()
}

// CallTool invokes one provider tool and returns its concatenated text
// content. Provider failures come back wrapped in apperr.ErrExternal so
// callers can turn them into model-visible text.
func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := p.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %s tool %s: %v", apperr.ErrExternal, p.name, name, err)
	}

	var sb strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}

	if result.IsError {
		return "", fmt.Errorf("%w: %s tool %s: %s", apperr.ErrExternal, p.name, name, sb.String())
	}
	if sb.Len() == 0 {
		return "Keine Ergebnisse.", nil
	}
	return sb.String(), nil
}

// ContactRecord is one upstream contact as reported by the contacts
// provider's list_contacts tool.
type ContactRecord struct {
	GoogleID     string   `json:"google_id"`
	Name         string   `json:"name"`
	Emails       []string `json:"emails"`
	Phones       []string `json:"phones"`
	Organization string   `json:"organization"`
}

// ContactsProvider wraps the contacts MCP server.
type ContactsProvider struct {
	*Provider
}

func NewContacts(ctx context.Context, command string) (*ContactsProvider, error) {
	p, err := New(ctx, "contacts", command)
	if err != nil {
		return nil, err
	}
	return &ContactsProvider{Provider: p}, nil
}

// Fetch returns the full upstream contact list.
func (p *ContactsProvider) Fetch(ctx context.Context) ([]ContactRecord, error) {
	raw, err := p.CallTool(ctx, "list_contacts", nil)
	if err != nil {
		return nil, err
	}

	var records []ContactRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: contacts provider returned malformed list: %v", apperr.ErrExternal, err)
	}
	return records, nil
}
