package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"car-sales/models"
	"car-sales/report"
	"car-sales/services"
)

const (
	defaultMinPrice = 10.0
	defaultMaxPrice = 30.0
)

var categoryOptions = []string{models.CategoryAny, "轿车", "SUV", "MPV"}

var templateFuncs = template.FuncMap{
	"price": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return strconv.FormatFloat(*v, 'f', 2, 64)
	},
	"count": func(v *int64) string {
		if v == nil {
			return "-"
		}
		return strconv.FormatInt(*v, 10)
	},
	"inc": func(i int) int { return i + 1 },
}

// Response is the JSON envelope of every API reply.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    any `json:"data,omitempty"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, Response{Code: status, Message: err.Error()})
}

type filterParams struct {
	Min      float64
	Max      float64
	Category string
}

func parseFilter(c *gin.Context) (filterParams, error) {
	p := filterParams{Min: defaultMinPrice, Max: defaultMaxPrice, Category: strings.TrimSpace(c.Query("category"))}
	var err error
	if v := c.Query("min"); v != "" {
		if p.Min, err = strconv.ParseFloat(v, 64); err != nil {
			return p, fmt.Errorf("invalid min %q", v)
		}
	}
	if v := c.Query("max"); v != "" {
		if p.Max, err = strconv.ParseFloat(v, 64); err != nil {
			return p, fmt.Errorf("invalid max %q", v)
		}
	}
	return p, nil
}

// statusFor maps a boundary failure to an HTTP status.
func statusFor(err error) int {
	var f *services.Failure
	if errors.As(err, &f) && f.Kind == services.KindSourceUnavailable {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) listings(c *gin.Context) {
	p, err := parseFilter(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	res, err := s.queries.Search(c.Request.Context(), p.Min, p.Max, p.Category)
	if err != nil {
		s.reqLogger(c).Error("[server] listings: %v", err)
		fail(c, statusFor(err), err)
		return
	}
	success(c, res)
}

func (s *Server) recommend(c *gin.Context) {
	p, err := parseFilter(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rec, err := s.queries.Recommend(c.Request.Context(), p.Min, p.Max, p.Category)
	if err != nil {
		s.reqLogger(c).Error("[server] recommend: %v", err)
		fail(c, statusFor(err), err)
		return
	}
	success(c, rec)
}

func (s *Server) analyze(c *gin.Context) {
	p, err := parseFilter(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	res, err := s.queries.Search(c.Request.Context(), p.Min, p.Max, p.Category)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	summary, fallbacks := s.assistant.Analyze(c.Request.Context(), res.Listings)
	success(c, gin.H{
		"result":    res,
		"insights":  s.insights.Generate(res.Listings),
		"summary":   summary,
		"fallbacks": fallbacks,
	})
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		fail(c, http.StatusBadRequest, errors.New("question is required"))
		return
	}
	ans, err := s.assistant.Ask(c.Request.Context(), req.Question)
	if err != nil {
		s.reqLogger(c).Error("[server] ask: %v", err)
		fail(c, statusFor(err), err)
		return
	}
	success(c, ans)
}

func (s *Server) chart(c *gin.Context) {
	p, err := parseFilter(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	res, err := s.queries.Search(c.Request.Context(), p.Min, p.Max, p.Category)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="sales_chart.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := report.WriteChart(c.Writer, res.Listings); err != nil {
		s.reqLogger(c).Error("[server] chart: %v", err)
	}
}

func (s *Server) healthz(c *gin.Context) {
	if s.store != nil {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusOK, gin.H{"status": "degraded", "store": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type indexPage struct {
	Filter     filterParams
	Categories []string
	Submitted  bool
	Result     *models.QueryResult
	Tip        string
	Summary    string
	Question   string
	Answer     *models.Answer
	Error      string
}

// index renders the dashboard. The filter runs when "run" is set, the
// assistant when "q" is non-empty.
func (s *Server) index(c *gin.Context) {
	ctx := c.Request.Context()
	page := indexPage{Categories: categoryOptions, Question: strings.TrimSpace(c.Query("q"))}

	p, err := parseFilter(c)
	page.Filter = p
	if err != nil {
		page.Error = err.Error()
		c.HTML(http.StatusBadRequest, "index.html", page)
		return
	}

	if c.Query("run") != "" {
		page.Submitted = true
		res, err := s.queries.Search(ctx, p.Min, p.Max, p.Category)
		if err != nil {
			page.Error = err.Error()
		} else {
			page.Result = res
			page.Tip = services.RecommendationTip(res.Listings)
			page.Summary, _ = s.assistant.Analyze(ctx, res.Listings)
		}
	}

	if page.Question != "" {
		ans, err := s.assistant.Ask(ctx, page.Question)
		if err != nil {
			page.Error = err.Error()
		} else {
			page.Answer = ans
		}
	}

	c.HTML(http.StatusOK, "index.html", page)
}
