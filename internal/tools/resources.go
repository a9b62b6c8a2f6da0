package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs served by the bridge.
const (
	ScriptURI         = "godot/script"
	ScriptListURI     = "godot/scripts"
	ScriptMetadataURI = "godot/script/metadata"
	ScriptByPathURI   = "godot/script/{+path}"
)

const (
	defaultScriptPath = "res://default_script.gd"
	resourcePrefix    = "res://"
)

var scriptExtensions = []string{".gd", ".cs"}

func (s *Server) addResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:      ScriptURI,
		Name:     "Script Content",
		MIMEType: "text/plain",
	}, s.readScript)

	s.mcp.AddResource(&mcp.Resource{
		URI:      ScriptListURI,
		Name:     "Script List",
		MIMEType: "application/json",
	}, s.readScriptList)

	s.mcp.AddResource(&mcp.Resource{
		URI:      ScriptMetadataURI,
		Name:     "Script Metadata",
		MIMEType: "application/json",
	}, s.readScriptMetadata)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: ScriptByPathURI,
		Name:        "Script Content By Path",
		Description: "Path to the script (e.g. res://scripts/player.gd)",
		MIMEType:    "text/plain",
	}, s.readScriptByPath)
}

func (s *Server) readScript(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return s.scriptContents(ctx, req.Params.URI, defaultScriptPath)
}

func (s *Server) readScriptByPath(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI

	raw, ok := strings.CutPrefix(uri, ScriptURI+"/")
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	p, err := url.PathUnescape(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid script path %q: %w", raw, err)
	}

	p = NormalizeScriptPath(p)
	if p == "" {
		return nil, errors.New("script path must be provided")
	}

	return s.scriptContents(ctx, uri, p)
}

func (s *Server) scriptContents(ctx context.Context, uri, scriptPath string) (*mcp.ReadResourceResult, error) {
	reply, err := fetchScript(ctx, s.cmd, map[string]any{"script_path": scriptPath})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", scriptPath, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     reply.Content,
			Meta: mcp.Meta{
				"path":     orDefault(reply.ScriptPath, scriptPath),
				"language": ScriptLanguage(scriptPath),
			},
		}},
	}, nil
}

// scriptList is the JSON document served for the script list resource.
type scriptList struct {
	Scripts       []string `json:"scripts"`
	Count         int      `json:"count"`
	GDScripts     []string `json:"gdscripts"`
	CSharpScripts []string `json:"csharp_scripts"`
}

func (s *Server) readScriptList(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	res, err := s.cmd.SendCommand(ctx, "list_project_files", map[string]any{"extensions": scriptExtensions})
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}

	var reply struct {
		Files []string `json:"files"`
	}

	if err := res.Decode(&reply); err != nil {
		return nil, err
	}

	list := scriptList{
		Scripts:       make([]string, 0, len(reply.Files)),
		GDScripts:     []string{},
		CSharpScripts: []string{},
	}

	for _, f := range reply.Files {
		list.Scripts = append(list.Scripts, f)

		switch path.Ext(f) {
		case ".gd":
			list.GDScripts = append(list.GDScripts, f)
		case ".cs":
			list.CSharpScripts = append(list.CSharpScripts, f)
		}
	}

	list.Count = len(list.Scripts)

	return jsonContents(req.Params.URI, list)
}

func (s *Server) readScriptMetadata(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	res, err := s.cmd.SendCommand(ctx, "get_script_metadata", map[string]any{"script_path": defaultScriptPath})
	if err != nil {
		return nil, fmt.Errorf("read script metadata: %w", err)
	}

	text := string(res.Raw)
	if strings.TrimSpace(text) == "" {
		text = "{}"
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     text,
		}},
	}, nil
}

func jsonContents(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// NormalizeScriptPath trims p and makes it a res:// path. A blank path stays blank.
func NormalizeScriptPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, resourcePrefix) {
		return p
	}

	return resourcePrefix + strings.TrimPrefix(p, "/")
}

// ScriptLanguage names the language of a script by its extension.
func ScriptLanguage(p string) string {
	switch path.Ext(p) {
	case ".gd":
		return "gdscript"
	case ".cs":
		return "csharp"
	default:
		return "unknown"
	}
}
