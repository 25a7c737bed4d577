package survey

import (
	"context"

	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

// Repos bundles the survey repositories over one store.
type Repos struct {
	Store       rowstore.Store
	Items       ItemRepo
	Mappings    MappingRepo
	Respondents RespondentRepo
	Responses   ResponseRepo
	Courses     CourseRepo
	log         *logger.Logger
}

func NewRepos(store rowstore.Store, baseLog *logger.Logger) *Repos {
	return &Repos{
		Store:       store,
		Items:       NewItemRepo(store, baseLog),
		Mappings:    NewMappingRepo(store, baseLog),
		Respondents: NewRespondentRepo(store, baseLog),
		Responses:   NewResponseRepo(store, baseLog),
		Courses:     NewCourseRepo(store, baseLog),
		log:         baseLog.With("repo", "Repos"),
	}
}

// Clear empties each table and returns the removed row count per table name.
func (r *Repos) Clear(ctx context.Context, tables ...rowstore.Table) (map[string]int, error) {
	out := make(map[string]int, len(tables))
	for _, t := range tables {
		n, err := rowstore.ClearTable(ctx, r.Store, t)
		if err != nil {
			return out, err
		}
		out[t.Name] = n
		r.log.Info("table cleared", "table", t.Name, "rows", n)
	}
	return out, nil
}
