package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/repos"
)

type Repos struct {
	User       repos.UserRepo
	Channel    repos.ChannelRepo
	Video      repos.VideoRepo
	Segment    repos.SegmentRepo
	Short      repos.ShortRepo
	Request    repos.RequestRepo
	Analytics  repos.AnalyticsRepo
	StockAudio repos.StockAudioRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:       repos.NewUserRepo(db, log),
		Channel:    repos.NewChannelRepo(db, log),
		Video:      repos.NewVideoRepo(db, log),
		Segment:    repos.NewSegmentRepo(db, log),
		Short:      repos.NewShortRepo(db, log),
		Request:    repos.NewRequestRepo(db, log),
		Analytics:  repos.NewAnalyticsRepo(db, log),
		StockAudio: repos.NewStockAudioRepo(db, log),
	}
}
