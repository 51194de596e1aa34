package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jlrickert/cli-toolkit/mylog"

	"github.com/jlrickert/textpix/pkg/record"
	"github.com/jlrickert/textpix/pkg/store"
	"github.com/jlrickert/textpix/pkg/textpix"
)

type imageRequest struct {
	ImageID string `json:"imageId"`
}

type textRequest struct {
	ImageID string `json:"imageId"`
	Text    string `json:"text"`
}

type saveRequest struct {
	ImageID  string `json:"imageId"`
	ImageURL string `json:"imageUrl"`
	Text     string `json:"text"`
}

type metadataRequest struct {
	ImageID     string   `json:"imageId"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
}

type listRequest struct {
	Tags string `json:"tags" form:"tags"`
}

type searchRequest struct {
	Keyword string `json:"keyword"`
}

// fail writes the uniform failure envelope. Operation errors never change
// the HTTP status.
func fail(c *gin.Context, err error) {
	lg := mylog.LoggerFromContext(c.Request.Context())
	if record.IsValidation(err) || record.IsNotFound(err) {
		lg.Debug("request_rejected", "path", c.FullPath(), "error", err)
	} else {
		lg.Error("request_failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
}

// bind decodes the JSON body into v. An empty body leaves v zero.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) create(c *gin.Context) {
	var req textRequest
	if !bind(c, &req) {
		return
	}
	// Generation runs to completion even if the client goes away.
	ctx := context.WithoutCancel(c.Request.Context())
	res, err := s.svc.Create(ctx, req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"imageUrl":        res.ImageURL,
		"imageId":         res.ImageID,
		"description":     res.Description,
		"suggestedTitles": res.SuggestedTitles,
		"message":         textpix.MsgCreated,
	})
}

func (s *Server) save(c *gin.Context) {
	var req saveRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.svc.Save(context.WithoutCancel(c.Request.Context()), textpix.SaveInput{
		ImageID:  req.ImageID,
		ImageURL: req.ImageURL,
		Text:     req.Text,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"imageId":  res.ImageID,
		"imageUrl": res.ImageURL,
		"message":  textpix.MsgSaved,
	})
}

func (s *Server) regenerate(c *gin.Context) {
	var req textRequest
	if !bind(c, &req) {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	res, err := s.svc.Regenerate(ctx, req.ImageID, req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"imageUrl":    res.ImageURL,
		"imageId":     res.ImageID,
		"description": res.Description,
		"message":     textpix.MsgRegenerated,
	})
}

func (s *Server) load(c *gin.Context) {
	var req imageRequest
	if !bind(c, &req) {
		return
	}
	loaded, err := s.svc.Load(c.Request.Context(), req.ImageID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"imageUrl":    loaded.ImageURL,
		"imageId":     loaded.ID,
		"text":        loaded.Text,
		"description": loaded.Description,
		"title":       loaded.Title,
	})
}

func (s *Server) getMetadata(c *gin.Context) {
	var req imageRequest
	if !bind(c, &req) {
		return
	}
	raw, err := s.svc.GetMetadata(c.Request.Context(), req.ImageID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "metadata": json.RawMessage(raw)})
}

func (s *Server) updateText(c *gin.Context) {
	var req textRequest
	if !bind(c, &req) {
		return
	}
	if _, err := s.svc.UpdateText(c.Request.Context(), req.ImageID, req.Text); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": textpix.MsgTextUpdated})
}

func (s *Server) updateMetadata(c *gin.Context) {
	var req metadataRequest
	if !bind(c, &req) {
		return
	}
	m, err := s.svc.UpdateMetadata(c.Request.Context(), req.ImageID, store.Patch{
		Title:       req.Title,
		Tags:        req.Tags,
		Description: req.Description,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": textpix.MsgMetadataUpdated, "metadata": m})
}

func (s *Server) remove(c *gin.Context) {
	var req imageRequest
	if !bind(c, &req) {
		return
	}
	deleted, err := s.svc.Delete(c.Request.Context(), req.ImageID)
	if err != nil {
		fail(c, err)
		return
	}
	msg := textpix.MsgDeleted
	if len(deleted) == 0 {
		msg = textpix.MsgAlreadyDeleted
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg, "deleted_files": deleted})
}

func (s *Server) list(c *gin.Context) {
	var req listRequest
	if c.Request.Method == http.MethodGet {
		if err := c.ShouldBindQuery(&req); err != nil {
			fail(c, err)
			return
		}
	} else if !bind(c, &req) {
		return
	}
	images, err := s.svc.List(c.Request.Context(), req.Tags)
	if err != nil {
		fail(c, err)
		return
	}
	if images == nil {
		images = []store.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "images": images, "count": len(images)})
}

func (s *Server) search(c *gin.Context) {
	var req searchRequest
	if !bind(c, &req) {
		return
	}
	results, err := s.svc.Search(c.Request.Context(), req.Keyword)
	if err != nil {
		fail(c, err)
		return
	}
	if results == nil {
		results = []store.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results, "count": len(results)})
}

func (s *Server) describeText(c *gin.Context) {
	var req textRequest
	if !bind(c, &req) {
		return
	}
	desc, err := s.svc.DescribeText(c.Request.Context(), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "description": desc})
}
