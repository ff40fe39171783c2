//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/health-advisor/internal/bootstrap"
	"github.com/yanqian/health-advisor/internal/domain/assessment"
	"github.com/yanqian/health-advisor/internal/infra/config"
	httpiface "github.com/yanqian/health-advisor/internal/interface/http"
	"github.com/yanqian/health-advisor/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideAssessmentConfig,
		provideTextGenerator,
		provideGenerationCache,
		provideCallLogRepository,
		assessment.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
