package repos

import (
	"github.com/yungbote/surveybridge-backend/internal/data/repos/survey"
	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type ItemRepo = survey.ItemRepo
type MappingRepo = survey.MappingRepo
type RespondentRepo = survey.RespondentRepo
type ResponseRepo = survey.ResponseRepo
type CourseRepo = survey.CourseRepo

type SurveyRepos = survey.Repos

func NewItemRepo(store rowstore.Store, baseLog *logger.Logger) ItemRepo {
	return survey.NewItemRepo(store, baseLog)
}
func NewMappingRepo(store rowstore.Store, baseLog *logger.Logger) MappingRepo {
	return survey.NewMappingRepo(store, baseLog)
}
func NewRespondentRepo(store rowstore.Store, baseLog *logger.Logger) RespondentRepo {
	return survey.NewRespondentRepo(store, baseLog)
}
func NewResponseRepo(store rowstore.Store, baseLog *logger.Logger) ResponseRepo {
	return survey.NewResponseRepo(store, baseLog)
}
func NewCourseRepo(store rowstore.Store, baseLog *logger.Logger) CourseRepo {
	return survey.NewCourseRepo(store, baseLog)
}

func NewSurveyRepos(store rowstore.Store, baseLog *logger.Logger) *SurveyRepos {
	return survey.NewRepos(store, baseLog)
}
