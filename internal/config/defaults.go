package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			Workspace: "~/.memebot/memes",
			LogLevel:  "info",
			Channel:   "twilio",
			ListLimit: 20,
		},
		Twilio: TwilioConfig{
			PollIntervalSeconds: 1,
		},
		Imgflip: ImgflipConfig{
			APIBase:     "https://api.imgflip.com",
			NoWatermark: true,
		},
		Gallery: GalleryConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8000,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "~/.memebot/memebot.db",
		},
	}
}
