// Package mcpserver exposes the textpix operations as Model Context Protocol
// tools so agents can create and curate image records.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/jlrickert/cli-toolkit/mylog"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jlrickert/textpix/pkg/store"
	"github.com/jlrickert/textpix/pkg/textpix"
)

const instructions = `textpix turns text into illustrated image records and keeps them in a ` +
	`flat file store. Use image_create to illustrate text, image_list or ` +
	`image_search to find records, image_load for the editable view, and the ` +
	`update tools to curate text, title, tags and description.`

// New builds an MCP server with every textpix tool registered.
func New(svc *textpix.Service, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "textpix", Version: version}, &mcp.ServerOptions{
		Instructions: instructions,
	})
	h := &handlers{svc: svc}

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "image_create",
		Description: "Generate an illustration for text and store it as a new record.",
	}, h.create)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "image_regenerate",
		Description: "Replace the image of an existing record using new text.",
	}, h.regenerate)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "image_load",
		Description: "Load the editable view of a record: image url, text, description and title.",
	}, h.load)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "image_get_metadata",
		Description: "Return the full stored metadata document of a record.",
	}, h.getMetadata)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "image_update_text",
		Description: "Replace the text of a record without regenerating its image.",
	}, h.updateText)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "image_update_metadata",
		Description: "Set the title, tags or description of a record. Omitted fields are left unchanged.",
	}, h.updateMetadata)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "image_delete",
		Description: "Delete a record and all of its files. Deleting a missing record succeeds.",
	}, h.remove)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "image_list",
		Description: "List records newest first, optionally filtered by a tag expression such as \"cat and not draft\".",
	}, h.list)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "image_search",
		Description: "Find records whose text, description or file name contains a keyword.",
	}, h.search)

	return srv
}

// Run serves the tools over stdio until ctx is done or the client
// disconnects.
func Run(ctx context.Context, svc *textpix.Service, version string) error {
	mylog.LoggerFromContext(ctx).Info("mcp_serve", "transport", "stdio")
	return New(svc, version).Run(ctx, &mcp.StdioTransport{})
}

type handlers struct {
	svc *textpix.Service
}

type IDInput struct {
	ImageID string `json:"image_id" jsonschema:"id of the image record"`
}

type TextInput struct {
	Text string `json:"text" jsonschema:"text to illustrate"`
}

type RegenerateInput struct {
	ImageID string `json:"image_id" jsonschema:"id of the image record"`
	Text    string `json:"text" jsonschema:"new text to illustrate"`
}

type UpdateTextInput struct {
	ImageID string `json:"image_id" jsonschema:"id of the image record"`
	Text    string `json:"text" jsonschema:"replacement text"`
}

type UpdateMetadataInput struct {
	ImageID     string   `json:"image_id" jsonschema:"id of the image record"`
	Title       string   `json:"title,omitempty" jsonschema:"new title"`
	Tags        []string `json:"tags,omitempty" jsonschema:"replacement tag list"`
	Description string   `json:"description,omitempty" jsonschema:"new description"`
}

type ListInput struct {
	Tags string `json:"tags,omitempty" jsonschema:"optional tag expression using and, or, not and parentheses"`
}

type SearchInput struct {
	Keyword string `json:"keyword" jsonschema:"case-insensitive substring to look for"`
}

type CreateOutput struct {
	ImageID         string   `json:"image_id"`
	ImageURL        string   `json:"image_url"`
	Description     string   `json:"description"`
	SuggestedTitles []string `json:"suggested_titles"`
}

type RegenerateOutput struct {
	ImageID     string `json:"image_id"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
}

type LoadOutput struct {
	ImageID     string `json:"image_id"`
	ImageURL    string `json:"image_url"`
	Text        string `json:"text"`
	Description string `json:"description"`
	Title       string `json:"title"`
}

type MetadataOutput struct {
	Metadata map[string]any `json:"metadata"`
}

type MessageOutput struct {
	Message string `json:"message"`
}

type DeleteOutput struct {
	Message      string   `json:"message"`
	DeletedFiles []string `json:"deleted_files"`
}

type ListOutput struct {
	Images []store.Summary `json:"images"`
	Count  int             `json:"count"`
}

func (h *handlers) create(ctx context.Context, _ *mcp.CallToolRequest, in TextInput) (*mcp.CallToolResult, CreateOutput, error) {
	// Generation runs to completion even if the client cancels the call.
	res, err := h.svc.Create(context.WithoutCancel(ctx), in.Text)
	if err != nil {
		return nil, CreateOutput{}, err
	}
	return nil, CreateOutput{
		ImageID:         res.ImageID,
		ImageURL:        res.ImageURL,
		Description:     res.Description,
		SuggestedTitles: res.SuggestedTitles,
	}, nil
}

func (h *handlers) regenerate(ctx context.Context, _ *mcp.CallToolRequest, in RegenerateInput) (*mcp.CallToolResult, RegenerateOutput, error) {
	res, err := h.svc.Regenerate(context.WithoutCancel(ctx), in.ImageID, in.Text)
	if err != nil {
		return nil, RegenerateOutput{}, err
	}
	return nil, RegenerateOutput{
		ImageID:     res.ImageID,
		ImageURL:    res.ImageURL,
		Description: res.Description,
	}, nil
}

func (h *handlers) load(ctx context.Context, _ *mcp.CallToolRequest, in IDInput) (*mcp.CallToolResult, LoadOutput, error) {
	loaded, err := h.svc.Load(ctx, in.ImageID)
	if err != nil {
		return nil, LoadOutput{}, err
	}
	return nil, LoadOutput{
		ImageID:     loaded.ID,
		ImageURL:    loaded.ImageURL,
		Text:        loaded.Text,
		Description: loaded.Description,
		Title:       loaded.Title,
	}, nil
}

func (h *handlers) getMetadata(ctx context.Context, _ *mcp.CallToolRequest, in IDInput) (*mcp.CallToolResult, MetadataOutput, error) {
	raw, err := h.svc.GetMetadata(ctx, in.ImageID)
	if err != nil {
		return nil, MetadataOutput{}, err
	}
	doc, err := toObject(raw)
	if err != nil {
		return nil, MetadataOutput{}, err
	}
	return nil, MetadataOutput{Metadata: doc}, nil
}

func (h *handlers) updateText(ctx context.Context, _ *mcp.CallToolRequest, in UpdateTextInput) (*mcp.CallToolResult, MessageOutput, error) {
	if _, err := h.svc.UpdateText(ctx, in.ImageID, in.Text); err != nil {
		return nil, MessageOutput{}, err
	}
	return nil, MessageOutput{Message: textpix.MsgTextUpdated}, nil
}

func (h *handlers) updateMetadata(ctx context.Context, _ *mcp.CallToolRequest, in UpdateMetadataInput) (*mcp.CallToolResult, MetadataOutput, error) {
	m, err := h.svc.UpdateMetadata(ctx, in.ImageID, store.Patch{
		Title:       in.Title,
		Tags:        in.Tags,
		Description: in.Description,
	})
	if err != nil {
		return nil, MetadataOutput{}, err
	}
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, MetadataOutput{}, err
	}
	doc, err := toObject(raw)
	if err != nil {
		return nil, MetadataOutput{}, err
	}
	return nil, MetadataOutput{Metadata: doc}, nil
}

func (h *handlers) remove(ctx context.Context, _ *mcp.CallToolRequest, in IDInput) (*mcp.CallToolResult, DeleteOutput, error) {
	deleted, err := h.svc.Delete(ctx, in.ImageID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	msg := textpix.MsgDeleted
	if len(deleted) == 0 {
		msg = textpix.MsgAlreadyDeleted
	}
	if deleted == nil {
		deleted = []string{}
	}
	return nil, DeleteOutput{Message: msg, DeletedFiles: deleted}, nil
}

func (h *handlers) list(ctx context.Context, _ *mcp.CallToolRequest, in ListInput) (*mcp.CallToolResult, ListOutput, error) {
	images, err := h.svc.List(ctx, in.Tags)
	if err != nil {
		return nil, ListOutput{}, err
	}
	return nil, listOutput(images), nil
}

func (h *handlers) search(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, ListOutput, error) {
	results, err := h.svc.Search(ctx, in.Keyword)
	if err != nil {
		return nil, ListOutput{}, err
	}
	return nil, listOutput(results), nil
}

func listOutput(items []store.Summary) ListOutput {
	if items == nil {
		items = []store.Summary{}
	}
	return ListOutput{Images: items, Count: len(items)}
}

func toObject(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
