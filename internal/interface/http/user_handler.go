package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-session/internal/application"
	"github.com/oksasatya/go-user-session/internal/domain/entity"
	"github.com/oksasatya/go-user-session/internal/interface/middleware"
	"github.com/oksasatya/go-user-session/pkg/apperror"
	"github.com/oksasatya/go-user-session/pkg/helpers"
	"github.com/oksasatya/go-user-session/pkg/response"
	"github.com/oksasatya/go-user-session/pkg/validation"
)

// UserUseCase is implemented by application.UserService.
type UserUseCase interface {
	Register(ctx context.Context, in application.RegisterInput, avatarPath, coverPath string) (*entity.UserProfile, error)
	Login(ctx context.Context, in application.LoginInput, meta application.ClientMeta) (*application.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, presented string) (application.TokenPair, error)
	GetProfile(ctx context.Context, userID string) (*entity.UserProfile, error)
	SearchUsers(ctx context.Context, q string, size int) ([]entity.UserProfile, error)
}

type UserHandler struct {
	Svc     UserUseCase
	Logger  *logrus.Logger
	Cookies *helpers.Manager

	// Multipart files are spooled to TmpDir; each may be at most MaxFileBytes.
	TmpDir       string
	MaxFileBytes int64
}

func NewUserHandler(svc UserUseCase, logger *logrus.Logger, cookieDomain, tmpDir string, maxFileBytes int64) *UserHandler {
	return &UserHandler{
		Svc:          svc,
		Logger:       logger,
		Cookies:      helpers.NewCookie(cookieDomain),
		TmpDir:       tmpDir,
		MaxFileBytes: maxFileBytes,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register accepts multipart/form-data with fullName, username, email,
// password, avatar (required file) and coverImage (optional file).
func (h *UserHandler) Register(c *gin.Context) {
	// two files plus form fields
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*h.MaxFileBytes+1<<20)

	var in application.RegisterInput
	if err := c.ShouldBind(&in); err != nil {
		response.Fail(c, apperror.Validation("invalid payload", validation.ToDetails(err)))
		return
	}

	avatar, err := h.spool(c, "avatar")
	if err != nil {
		response.Fail(c, err)
		return
	}
	cover, err := h.spool(c, "coverImage")
	if err != nil {
		h.discard(avatar)
		response.Fail(c, err)
		return
	}

	p, err := h.Svc.Register(c.Request.Context(), in, avatar, cover)
	if err != nil {
		h.fail(c, "register", err)
		return
	}
	response.Success(c, http.StatusCreated, p, "user registered successfully", nil)
}

func (h *UserHandler) Login(c *gin.Context) {
	var in application.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, apperror.Validation("invalid payload", validation.ToDetails(err)))
		return
	}

	meta := application.ClientMeta{IP: helpers.ClientIP(c), UserAgent: c.Request.UserAgent(), At: time.Now()}
	res, err := h.Svc.Login(c.Request.Context(), in, meta)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	// the refresh token is persisted by now
	h.Cookies.SetPair(c, res.Tokens.AccessToken, res.Tokens.AccessTokenExpiry, res.Tokens.RefreshToken, res.Tokens.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, res, "user logged in successfully", nil)
}

// Refresh reads the refresh token from its cookie, falling back to the
// refresh_token field of a JSON body.
func (h *UserHandler) Refresh(c *gin.Context) {
	presented, _ := c.Cookie(helpers.RefreshCookie)
	if presented == "" {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Fail(c, apperror.Validation("invalid payload", validation.ToDetails(err)))
			return
		}
		presented = req.RefreshToken
	}

	pair, err := h.Svc.Refresh(c.Request.Context(), presented)
	if err != nil {
		h.fail(c, "refresh", err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, pair, "access token refreshed", nil)
}

func (h *UserHandler) Logout(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.Logout(c.Request.Context(), uid); err != nil {
		h.fail(c, "logout", err)
		return
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{}, "user logged out", nil)
}

func (h *UserHandler) Me(c *gin.Context) {
	p, err := h.Svc.GetProfile(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		h.fail(c, "profile", err)
		return
	}
	response.Success(c, http.StatusOK, p, "profile", nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	res, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		h.fail(c, "search", err)
		return
	}
	response.Success(c, http.StatusOK, res, "ok", map[string]any{"count": len(res)})
}

// spool saves the multipart file field to TmpDir and returns its path,
// or "" when the field is absent.
func (h *UserHandler) spool(c *gin.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", apperror.Validation("invalid multipart payload", map[string]string{field: "could not be read"})
	}
	if fh.Size > h.MaxFileBytes {
		return "", apperror.Validation("file too large", map[string]string{field: fmt.Sprintf("must be at most %d bytes", h.MaxFileBytes)})
	}
	dst := filepath.Join(h.TmpDir, "upload-"+uuid.NewString()+filepath.Ext(filepath.Base(fh.Filename)))
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		return "", apperror.Internal("failed to store upload", err)
	}
	return dst, nil
}

func (h *UserHandler) discard(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && h.Logger != nil {
		h.Logger.WithError(err).WithField("path", path).Warn("remove temp upload failed")
	}
}

func (h *UserHandler) fail(c *gin.Context, op string, err error) {
	if apperror.KindOf(err) == apperror.KindInternal && h.Logger != nil {
		helpers.RequestLogger(h.Logger, c).WithError(err).WithField("op", op).Error("request failed")
	}
	response.Fail(c, err)
}
