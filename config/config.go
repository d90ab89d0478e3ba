package config

type Config struct {
	// FFmpegPath overrides the ffmpeg binary. Empty means $FFMPEG, then $PATH.
	FFmpegPath string

	// OutputDir holds rendered videos, thumbnails and uploaded sprites in
	// server mode.
	OutputDir string
	Port      int

	// DatabaseDSN is a MySQL DSN for render history and push subscriptions.
	// If empty, history is kept in memory and web push is disabled.
	DatabaseDSN string

	// MaxConcurrentRenders bounds simultaneous render jobs in server mode.
	MaxConcurrentRenders int

	// HardwareBitrate is the target bitrate for the hardware profile.
	HardwareBitrate string

	// PoolCanvases reuses canvas buffers between frames instead of allocating
	// a fresh one per frame.
	PoolCanvases bool

	// PreviewEvery publishes every Nth frame to the MJPEG preview stream.
	// Zero disables the preview.
	PreviewEvery int

	// PushSubscriber is the contact address sent with web push messages.
	PushSubscriber string
}

func Default() *Config {
	return &Config{
		OutputDir:            "/tmp/spritemov/",
		Port:                 8080,
		MaxConcurrentRenders: 1,
		HardwareBitrate:      "20M",
		PreviewEvery:         10,
	}
}
