package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicegate/asr"
	apperrors "github.com/kbukum/voicegate/errors"
)

func (h *Handler) asrProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.asr.ProbeAll(c.Request.Context())})
}

// transcribe accepts a multipart upload with "file" and the optional
// "lang" and "provider" fields.
func (h *Handler) transcribe(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, asr.Capability, apperrors.MissingField("file").WithCause(err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, asr.Capability, apperrors.InvalidInput("file", "unreadable upload").WithCause(err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, asr.Capability, apperrors.InvalidInput("file", "unreadable upload").WithCause(err))
		return
	}

	req := asr.Request{
		Audio:    data,
		Filename: fh.Filename,
		Language: strings.TrimSpace(c.PostForm("lang")),
	}
	res, err := h.asr.Transcribe(c.Request.Context(), req, c.DefaultPostForm("provider", "auto"))
	if err != nil {
		h.fail(c, asr.Capability, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
