package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"car-sales/cache"
	"car-sales/llm"
	"car-sales/metrics"
	"car-sales/models"
	"car-sales/report"
	"car-sales/storage"
	"car-sales/utils"
)

const translatePrompt = `你是一个精通汽车数据的高级分析师。请根据用户的问题生成一条 %s 查询语句。
【数据库表：car_sales】字段：brand, series, monthly_sales, category, min_price, max_price, price_range
【要求】
1. 搜索词：使用 LIKE '%%关键词%%' 模糊匹配。
2. 多字段：对 brand、series 和 category 进行 OR 联合搜索。
3. 排序：默认按 monthly_sales DESC，LIMIT %d。
只输出 SQL 语句，不要解释。
用户问题：%s`

var (
	writeKeywordRegexp = regexp.MustCompile(`\b(insert|update|delete|drop|alter|create|truncate|replace|merge|grant|revoke|attach|detach|pragma|vacuum|copy|into|call|exec|execute|lock|set)\b`)
	tableRegexp        = regexp.MustCompile(`\bcar_sales\b`)
	fenceReplacer      = strings.NewReplacer("```sql", "", "```SQL", "", "```", "", ";", "")
)

// Assistant turns free-text questions into store queries and prose answers.
type Assistant struct {
	llm      llm.Completer
	store    storage.ExpressionSource
	queries  *QueryService
	insights *InsightService
	cache    cache.Client
	cacheTTL time.Duration
	logger   *utils.Logger
}

// NewAssistant wires the assistant. store may be nil when no SQL store is
// configured, in which case questions go straight to the degraded source.
func NewAssistant(
	completer llm.Completer,
	store storage.ExpressionSource,
	queries *QueryService,
	insights *InsightService,
	c cache.Client,
	cacheTTL time.Duration,
	logger *utils.Logger,
) *Assistant {
	if c == nil {
		c = cache.Noop{}
	}
	return &Assistant{
		llm:      completer,
		store:    store,
		queries:  queries,
		insights: insights,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// DefaultExpression is the query used whenever translation fails.
func DefaultExpression(limit int) string {
	return fmt.Sprintf("SELECT * FROM car_sales ORDER BY monthly_sales DESC NULLS LAST LIMIT %d", limit)
}

// SanitizeExpression strips code fences and semicolons from model output and
// accepts only a single SELECT over car_sales with no write keywords.
func SanitizeExpression(raw string) (string, error) {
	expr := strings.TrimSpace(fenceReplacer.Replace(raw))
	if expr == "" {
		return "", fmt.Errorf("%w: empty", ErrUnusableExpression)
	}

	lower := strings.ToLower(expr)
	switch {
	case !strings.HasPrefix(lower, "select"):
		return "", fmt.Errorf("%w: not a SELECT", ErrUnusableExpression)
	case !tableRegexp.MatchString(lower):
		return "", fmt.Errorf("%w: does not read car_sales", ErrUnusableExpression)
	case writeKeywordRegexp.MatchString(lower):
		return "", fmt.Errorf("%w: contains a write keyword", ErrUnusableExpression)
	case strings.Contains(lower, "--"), strings.Contains(lower, "/*"):
		return "", fmt.Errorf("%w: contains a comment", ErrUnusableExpression)
	}
	return expr, nil
}

// Translate asks the model for a filter expression. Any failure yields the
// default expression and the failure kind that caused it.
func (a *Assistant) Translate(ctx context.Context, question string) (string, []string) {
	limit := a.queries.Limits().Ask
	dialect := "SQL"
	if a.store != nil {
		dialect = a.storeDialect()
	}
	// Cached expressions are scoped to the dialect and limit they were generated for.
	key := cache.QuestionKey(fmt.Sprintf("sql:%s:%d", dialect, limit), question)

	if cached, err := a.cache.Get(ctx, key); err == nil {
		a.logger.Debug("[assistant] Translation cache hit")
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		a.logger.Warn("[assistant] Cache read failed: %v", err)
	}

	out, err := a.complete(ctx, "translate", fmt.Sprintf(translatePrompt, dialect, limit, question))
	if err != nil {
		return DefaultExpression(limit), []string{recordFallback(a.logger, Classify("translate", err))}
	}

	expr, err := SanitizeExpression(out)
	if err != nil {
		a.logger.Debug("[assistant] Rejected model output %q", out)
		return DefaultExpression(limit), []string{recordFallback(a.logger, Classify("translate", err))}
	}

	if err := a.cache.Set(ctx, key, expr, a.cacheTTL); err != nil {
		a.logger.Warn("[assistant] Cache write failed: %v", err)
	}
	return expr, nil
}

// Ask answers a free-text question: translate, execute, then summarise.
// It only fails when no source at all can produce rows.
func (a *Assistant) Ask(ctx context.Context, question string) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	expr, fallbacks := a.Translate(ctx, question)

	result, more, err := a.execute(ctx, expr)
	fallbacks = append(fallbacks, more...)
	if err != nil {
		return nil, err
	}

	var prompt string
	if !result.Empty() {
		var table strings.Builder
		_ = report.WriteTable(&table, result.Listings)
		prompt = fmt.Sprintf("用户问：%s。查询到的数据是：\n%s\n请简要分析这些车的优缺点。", question, table.String())
	} else {
		prompt = fmt.Sprintf("用户问：%s。请基于你的知识给出购车建议。", question)
	}

	summary, err := a.complete(ctx, "answer", prompt)
	if err != nil {
		fallbacks = append(fallbacks, recordFallback(a.logger, Classify("answer", err)))
		summary = a.insights.Narrate(a.insights.Generate(result.Listings))
	}

	return &models.Answer{
		Question:   question,
		Expression: expr,
		Result:     result,
		Summary:    summary,
		Fallbacks:  fallbacks,
	}, nil
}

// execute runs expr on the store; on failure the default expression is tried
// on the store, then the default top-N on the degraded source.
func (a *Assistant) execute(ctx context.Context, expr string) (*models.QueryResult, []string, error) {
	limit := a.queries.Limits().Ask
	var fallbacks []string

	if a.store != nil {
		attempts := []string{expr}
		if def := DefaultExpression(limit); expr != def {
			attempts = append(attempts, def)
		}
		for _, e := range attempts {
			listings, err := a.store.QuerySQL(ctx, e, limit)
			if err == nil {
				metrics.Queries.WithLabelValues("expression").Inc()
				return &models.QueryResult{Listings: listings, Source: a.store.Name(), Fallbacks: fallbacks}, fallbacks, nil
			}
			if ctx.Err() != nil {
				return nil, fallbacks, ctx.Err()
			}
			fallbacks = append(fallbacks, recordFallback(a.logger, Classify("execute", err)))
		}
	}

	res, err := a.queries.QueryDegraded(ctx, models.TopSellers(limit))
	if err != nil {
		return nil, fallbacks, err
	}
	res.Fallbacks = fallbacks
	return res, fallbacks, nil
}

// Analyze asks the model for a market analysis of a result table, falling
// back to the local narrative.
func (a *Assistant) Analyze(ctx context.Context, listings []*models.Listing) (string, []string) {
	local := func() string { return a.insights.Narrate(a.insights.Generate(listings)) }
	if len(listings) == 0 {
		return local(), nil
	}

	var table strings.Builder
	_ = report.WriteTable(&table, listings)
	summary, err := a.complete(ctx, "analyze",
		"请根据这份汽车销量表进行深度分析，指出销量冠军、性价比之王，并给购买建议：\n"+table.String())
	if err != nil {
		return local(), []string{recordFallback(a.logger, Classify("analyze", err))}
	}
	return summary, nil
}

func (a *Assistant) complete(ctx context.Context, purpose, prompt string) (string, error) {
	if a.llm == nil {
		metrics.LLMRequests.WithLabelValues(purpose, "disabled").Inc()
		return "", llm.ErrDisabled
	}
	out, err := a.llm.Complete(ctx, prompt)
	outcome := "ok"
	switch {
	case errors.Is(err, llm.ErrDisabled):
		outcome = "disabled"
	case err != nil:
		outcome = "error"
	}
	metrics.LLMRequests.WithLabelValues(purpose, outcome).Inc()
	return out, err
}

func (a *Assistant) storeDialect() string {
	type dialected interface{ Dialect() storage.Dialect }
	if d, ok := a.store.(dialected); ok {
		switch d.Dialect().Name {
		case storage.Postgres.Name:
			return "PostgreSQL"
		case storage.SQLite.Name:
			return "SQLite"
		}
	}
	return "SQL"
}
