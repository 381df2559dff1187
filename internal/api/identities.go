package api

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"classattend/internal/face"
	"classattend/internal/identity"
	"classattend/internal/photos"
	"classattend/internal/registration"
)

type identityHandler struct {
	svc       *identity.Service
	submitter *registration.Submitter
	jobs      registration.StatusStore
}

type upsertIdentityRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Embedding face.Embedding `json:"embedding"`
}

func (h *identityHandler) upsert(c *gin.Context) {
	var req upsertIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	store := h.svc.Store()

	existing, err := store.Get(ctx, req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	ident := identity.Identity{ID: req.ID, Name: req.Name, Embedding: req.Embedding}
	if err := store.Upsert(ctx, ident); err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if existing != nil {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"id": req.ID, "created": existing == nil})
}

func (h *identityHandler) list(c *gin.Context) {
	idents, err := h.svc.Store().List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if idents == nil {
		idents = []identity.Identity{}
	}
	c.JSON(http.StatusOK, gin.H{"identities": idents, "total": len(idents)})
}

func (h *identityHandler) get(c *gin.Context) {
	ident, err := h.svc.Store().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if ident == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
		return
	}
	c.JSON(http.StatusOK, ident)
}

func (h *identityHandler) embeddings(c *gin.Context) {
	all, err := h.svc.Store().All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if all == nil {
		all = []face.Candidate{}
	}
	c.JSON(http.StatusOK, gin.H{"embeddings": all})
}

type registerRequest struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Detections []face.Detection `json:"detections"`
}

// register applies the single-face policy to detections made by the client.
func (h *identityHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ident, err := h.svc.Register(c.Request.Context(), req.ID, req.Name, "", req.Detections)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": ident.ID, "name": ident.Name, "updated_at": ident.UpdatedAt})
}

func (h *identityHandler) uploadPhoto(c *gin.Context) {
	if h.submitter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "photo registration not configured"})
		return
	}

	var (
		data []byte
		name string
		err  error
	)
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		name = c.PostForm("name")
		data, err = readFormFile(c, "photo")
		if err != nil {
			badRequest(c, err.Error())
			return
		}
	} else {
		var body struct {
			Data string `json:"data" binding:"required"`
			Name string `json:"name"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, `provide {"data": "<base64 image or data URL>"}`)
			return
		}
		if data, err = decodeDataURL(body.Data); err != nil {
			badRequest(c, err.Error())
			return
		}
		name = body.Name
	}

	job, err := h.submitter.Submit(c.Request.Context(), c.Param("id"), name, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (h *identityHandler) job(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "photo registration not configured"})
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), c.Param("job"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func readFormFile(c *gin.Context, field string) ([]byte, error) {
	file, _, err := c.Request.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s field required", field)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, photos.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return data, nil
}

// decodeDataURL accepts plain base64 or a data:image/...;base64, URL.
func decodeDataURL(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 || !strings.HasSuffix(s[:i], ";base64") {
			return nil, fmt.Errorf("malformed data URL")
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return data, nil
}
