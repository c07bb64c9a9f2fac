package gateway

import (
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/typhfeng/stk-sub000/internal/gateway/docs"
	"github.com/typhfeng/stk-sub000/internal/featurestore"
)

// registerRoutes wires the read-only feature-store surface, grouped
// the way the teacher groups its /api subtrees in
// internal/gateway/router.go, plus the same swag/gin-swagger
// documentation route the teacher wires over its own gin surface in
// cmd/tradsys/main.go and internal/api/docs.go.
func registerRoutes(r *gin.Engine, store *featurestore.Store) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/health", healthHandler)

	levels := r.Group("/levels/:level")
	levels.Use(levelMiddleware())
	{
		levels.GET("/size", sizeHandler(store))
		levels.GET("/ready", readyHandler(store))
		levels.GET("/columns/:column", columnHandler(store))
		levels.GET("/parent-index", parentIndexHandler(store))
	}

	r.GET("/dates/:date/complete", dateCompleteHandler(store))
}

// healthHandler godoc
// @Summary Liveness probe
// @Tags Gateway
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

const levelKey = "parsedLevel"

// levelMiddleware parses the :level path segment once per request and
// stashes it in the gin context, so each handler below doesn't repeat
// the tick/minute/hour name-to-Level mapping.
func levelMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Param("level") {
		case "tick":
			c.Set(levelKey, featurestore.Tick)
		case "minute":
			c.Set(levelKey, featurestore.Minute)
		case "hour":
			c.Set(levelKey, featurestore.Hour)
		default:
			c.AbortWithStatusJSON(400, gin.H{"error": "unknown level, want tick|minute|hour"})
			return
		}
		c.Next()
	}
}

func levelOf(c *gin.Context) featurestore.Level {
	return c.MustGet(levelKey).(featurestore.Level)
}

// sizeHandler godoc
// @Summary Current row count for a feature-store level
// @Tags FeatureStore
// @Param level path string true "tick|minute|hour"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]string
// @Router /levels/{level}/size [get]
func sizeHandler(store *featurestore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"size": store.Size(levelOf(c))})
	}
}

// readyHandler godoc
// @Summary Whether a timeslot has been fully published
// @Tags FeatureStore
// @Param level path string true "tick|minute|hour"
// @Param date query int true "YYYYMMDD"
// @Param t query int true "row index"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Router /levels/{level}/ready [get]
func readyHandler(store *featurestore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, err := strconv.ParseInt(c.Query("date"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "date query param must be an integer YYYYMMDD"})
			return
		}
		t, err := strconv.Atoi(c.Query("t"))
		if err != nil {
			c.JSON(400, gin.H{"error": "t query param must be an integer row index"})
			return
		}
		ready := store.IsTimeslotReady(int32(date), levelOf(c), t)
		c.JSON(200, gin.H{"ready": ready})
	}
}

// columnHandler godoc
// @Summary Read one column's contiguous values
// @Tags FeatureStore
// @Param level path string true "tick|minute|hour"
// @Param column path int true "column index"
// @Success 200 {object} map[string][]float64
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /levels/{level}/columns/{column} [get]
func columnHandler(store *featurestore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		col, err := strconv.Atoi(c.Param("column"))
		if err != nil {
			c.JSON(400, gin.H{"error": "column must be an integer index"})
			return
		}
		values, err := store.ColumnView(levelOf(c), col)
		if err != nil {
			c.JSON(404, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"values": values})
	}
}

// parentIndexHandler godoc
// @Summary Read a level's parent-row back-reference column
// @Tags FeatureStore
// @Param level path string true "tick|minute|hour"
// @Success 200 {object} map[string][]int
// @Failure 404 {object} map[string]string
// @Router /levels/{level}/parent-index [get]
func parentIndexHandler(store *featurestore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, err := store.ParentIndexView(levelOf(c))
		if err != nil {
			c.JSON(404, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"parent_index": idx})
	}
}

// dateCompleteHandler godoc
// @Summary Whether a trading date has been marked complete
// @Tags FeatureStore
// @Param date path int true "YYYYMMDD"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Router /dates/{date}/complete [get]
func dateCompleteHandler(store *featurestore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, err := strconv.ParseInt(c.Param("date"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "date must be an integer YYYYMMDD"})
			return
		}
		c.JSON(200, gin.H{"complete": store.DateComplete(int32(date))})
	}
}
