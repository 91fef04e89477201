package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	SuccessfulRequests *prometheus.CounterVec
	BadRequests        *prometheus.CounterVec
	FollowToggles      *prometheus.CounterVec
	MessagesSent       *prometheus.CounterVec
	PostsCreated       *prometheus.CounterVec
	Notifications      *prometheus.CounterVec
	ModerationActions  *prometheus.CounterVec
}

func Init() *Metrics {
	m := &Metrics{
		SuccessfulRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_request",
				Help: "Total number of successful (2xx) HTTP requests",
			},
			[]string{"path"},
		),
		BadRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unsuccessful_request",
				Help: "Total number of unsuccessful (4xx) HTTP requests",
			},
			[]string{"path"},
		),
		FollowToggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "follow_toggles",
				Help: "Total number of follow/unfollow toggles applied",
			},
			[]string{"direction"},
		),
		MessagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messages_sent",
				Help: "Total number of chat messages appended",
			},
			[]string{"kind"},
		),
		PostsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posts_created",
				Help: "Total number of posts created",
			},
			[]string{"kind"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_fanned_out",
				Help: "Total number of notification records written",
			},
			[]string{"type"},
		),
		ModerationActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_actions",
				Help: "Total number of moderation actions applied",
			},
			[]string{"action"},
		),
	}

	prometheus.MustRegister(m.SuccessfulRequests)
	prometheus.MustRegister(m.BadRequests)
	prometheus.MustRegister(m.FollowToggles)
	prometheus.MustRegister(m.MessagesSent)
	prometheus.MustRegister(m.PostsCreated)
	prometheus.MustRegister(m.Notifications)
	prometheus.MustRegister(m.ModerationActions)

	return m
}
