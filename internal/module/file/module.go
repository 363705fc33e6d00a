package file

import "github.com/gin-gonic/gin"

// FileModule implements the app.Module interface for uploads.
type FileModule struct {
	handler *FileHandler
}

// NewModule creates a new FileModule with the given handler.
// Panics if h is nil.
func NewModule(h *FileHandler) *FileModule {
	if h == nil {
		panic("file.NewModule: handler must not be nil")
	}
	return &FileModule{handler: h}
}

func (m *FileModule) RegisterRoutes(_ *gin.RouterGroup, protected *gin.RouterGroup) {
	protected.POST("/files", m.handler.Upload)
}
