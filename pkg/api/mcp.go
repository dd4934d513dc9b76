package api

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/accent-atlas/pkg/dict"
	"github.com/hazyhaar/accent-atlas/pkg/kit"
	"github.com/hazyhaar/accent-atlas/pkg/mentalmap"
	"github.com/hazyhaar/accent-atlas/pkg/survey"
)

// RegisterMCPTools registers the atlas MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, svc *Service) {
	registerCanonicalize(srv, svc)
	registerParse(srv, svc)
	registerHeatmap(srv, svc)
	registerCoOccurrence(srv, svc)
	registerListRules(srv, svc)
	registerListDatasets(srv, svc)
}

func registerCanonicalize(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("canonicalize_term",
		mcp.WithDescription("Map a free-text accent name or place to its canonical label."),
		mcp.WithString("term", mcp.Required(), mcp.Description("The free-text term")),
		mcp.WithString("table", mcp.Description("Rule table id (default labels; see list_rules)")),
	)

	kit.RegisterMCPTool(srv, tool, svc.endpoint("canonicalize", canonicalizeEndpoint(svc.reg)),
		func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			args := req.GetArguments()
			term, _ := args["term"].(string)
			if term == "" {
				return nil, fmt.Errorf("term is required")
			}
			table, _ := args["table"].(string)
			if table == "" {
				table = dict.TableLabels
			}
			return &kit.MCPDecodeResult{Request: &canonicalizeReq{Term: term, Table: table}}, nil
		})
}

func registerParse(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("parse_participants",
		mcp.WithDescription("Turn questionnaire rows (column header to cell) into normalized participant records."),
		mcp.WithString("rows", mcp.Required(), mcp.Description("JSON array of row objects")),
	)

	kit.RegisterMCPTool(srv, tool, svc.endpoint("parse_participants", svc.parseEndpoint()),
		func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			raw, _ := req.GetArguments()["rows"].(string)
			var rows []*survey.Row
			if err := json.Unmarshal([]byte(raw), &rows); err != nil {
				return nil, err
			}
			return &kit.MCPDecodeResult{Request: &parseReq{Rows: rows}}, nil
		})
}

func registerHeatmap(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("rasterize_mentalmaps",
		mcp.WithDescription("Rasterize mental-map polygons into a coverage grid, optionally smoothed."),
		mcp.WithString("geojson", mcp.Required(), mcp.Description("GeoJSON FeatureCollection of drawn polygons")),
		mcp.WithString("question", mcp.Description("Question id to keep (default all)")),
		mcp.WithString("participant", mcp.Description("Participant code to keep (default everyone)")),
		mcp.WithNumber("cell_size", mcp.Description("Cell size in degrees (default 0.5)")),
		mcp.WithNumber("radius", mcp.Description("Box smoothing radius, 0 to 3")),
	)

	kit.RegisterMCPTool(srv, tool, svc.endpoint("heatmap", svc.heatmapEndpoint()),
		func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			args := req.GetArguments()
			raw, _ := args["geojson"].(string)
			c, err := mentalmap.Parse([]byte(raw))
			if err != nil {
				return nil, err
			}
			hr := &heatmapReq{Features: c.Features}
			hr.Question, _ = args["question"].(string)
			hr.Participant, _ = args["participant"].(string)
			if v, ok := args["cell_size"].(float64); ok {
				if v <= 0 {
					return nil, fmt.Errorf("cell_size must be positive")
				}
				hr.CellSize = v
			}
			if v, ok := args["radius"].(float64); ok {
				hr.Radius = int(v)
			}
			return &kit.MCPDecodeResult{Request: hr}, nil
		})
}

func registerCoOccurrence(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("cooccurrence",
		mcp.WithDescription("Count how often labels are named together by the same participant."),
		mcp.WithString("lists", mcp.Required(), mcp.Description("JSON array of label arrays, one per participant")),
	)

	kit.RegisterMCPTool(srv, tool, svc.endpoint("cooccurrence", coOccurrenceEndpoint()),
		func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			raw, _ := req.GetArguments()["lists"].(string)
			var lists [][]string
			if err := json.Unmarshal([]byte(raw), &lists); err != nil {
				return nil, err
			}
			return &kit.MCPDecodeResult{Request: &coOccurrenceReq{Lists: lists}}, nil
		})
}

func registerListRules(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("list_rules",
		mcp.WithDescription("List the loaded canonicalization rule tables."),
	)

	kit.RegisterMCPTool(srv, tool, svc.endpoint("list_rules", listRulesEndpoint(svc.reg)),
		func(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			return &kit.MCPDecodeResult{Request: nil}, nil
		})
}

func registerListDatasets(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("list_datasets",
		mcp.WithDescription("List imported survey and mental-map datasets."),
	)

	kit.RegisterMCPTool(srv, tool, svc.endpoint("list_datasets", svc.listDatasetsEndpoint()),
		func(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			return &kit.MCPDecodeResult{Request: nil}, nil
		})
}
