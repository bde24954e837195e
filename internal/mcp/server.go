package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/savente93/snakedown/internal/docs"
	"github.com/savente93/snakedown/internal/pipeline"
	"github.com/savente93/snakedown/internal/render"
)

//go:embed instructions.md
var instructions string

const uriScheme = "snakedown://"

const defaultListLimit = 200

type Server struct {
	mcpServer *server.MCPServer
	build     *pipeline.Build
	rctx      render.Context
}

// Symbol is the lookup_symbol result.
type Symbol struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Signature string `json:"signature,omitempty"`
	Docstring string `json:"docstring,omitempty"`
	URL       string `json:"url,omitempty"`
	URI       string `json:"uri,omitempty"`
}

func NewServer(b *pipeline.Build, rctx render.Context, version string) *Server {
	s := &Server{build: b, rctx: rctx}

	mcpServer := server.NewMCPServer(
		"snakedown",
		version,
		server.WithInstructions(instructions),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("lookup_symbol",
			mcp.WithDescription("Look up a fully-qualified Python name. Returns kind, signature and docstring for symbols of this package, or the URL for symbols documented externally."),
			mcp.WithString("name",
				mcp.Description("Fully-qualified name, e.g. \"mypkg.sub.func\""),
				mcp.Required(),
			),
		),
		s.handleLookupSymbol,
	)

	mcpServer.AddTool(
		mcp.NewTool("list_symbols",
			mcp.WithDescription("List fully-qualified names documented by this package, in sorted order."),
			mcp.WithString("prefix",
				mcp.Description("Only list names starting with this prefix"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of names (default 200)"),
			),
		),
		s.handleListSymbols,
	)
}

func (s *Server) registerResources(mcpServer *server.MCPServer) {
	mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			uriScheme+"{name}",
			"Python API page",
			mcp.WithTemplateDescription("Rendered documentation page of a symbol. lookup_symbol returns these URIs."),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		s.handleReadResource,
	)
}

func (s *Server) handleLookupSymbol(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}

	idx := s.build.Index
	var sym Symbol
	if obj, ok := idx.Object(name); ok {
		sym = Symbol{Name: name, Kind: obj.Kind().String(), URI: uriScheme + name}
		if fn, ok := obj.(*docs.Function); ok {
			sym.Signature = fn.Signature()
		}
		if doc, ok := obj.Docstring(); ok {
			sym.Docstring = doc
		}
	} else if u, ok := idx.External(name); ok {
		sym = Symbol{Name: name, Kind: "external", URL: u}
	} else {
		msg := fmt.Sprintf("unknown symbol %q", name)
		if sug, ok := idx.Suggest(name); ok {
			msg += fmt.Sprintf(", did you mean %q?", sug.Candidate)
		}
		return mcp.NewToolResultError(msg), nil
	}

	resultJSON, _ := json.MarshalIndent(sym, "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (s *Server) handleListSymbols(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := req.GetString("prefix", "")
	limit := int(req.GetFloat("limit", defaultListLimit))
	if limit <= 0 {
		limit = defaultListLimit
	}

	names := []string{}
	for _, name := range s.build.Index.Names() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if len(names) == limit {
			break
		}
		names = append(names, name)
	}

	resultJSON, _ := json.MarshalIndent(names, "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (s *Server) handleReadResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	name := strings.TrimPrefix(uri, uriScheme)
	if name == uri || name == "" {
		return nil, fmt.Errorf("invalid resource URI: %s", uri)
	}

	obj, ok := s.build.Index.Object(name)
	if !ok {
		return nil, fmt.Errorf("unknown symbol %q", name)
	}
	page, err := render.RenderObject(obj, name, s.build.Renderer, s.rctx)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", name, err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     page,
		},
	}, nil
}

func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}
