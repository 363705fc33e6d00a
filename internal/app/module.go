package app

import "github.com/gin-gonic/gin"

// Module defines the contract for a self-registering business module.
// public carries anonymous routes; protected sits behind Authenticate.
// Role checks are applied by each module on its own groups.
type Module interface {
	RegisterRoutes(public *gin.RouterGroup, protected *gin.RouterGroup)
}
