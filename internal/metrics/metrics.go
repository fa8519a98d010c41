// Package metrics exposes prometheus counters for the messaging core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlog_messages_created_total",
		Help: "Messages accepted and written to the global log.",
	})

	MessagesEdited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlog_messages_edited_total",
		Help: "Message edits applied to the global log.",
	})

	MessagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlog_messages_deleted_total",
		Help: "Messages removed from the logs.",
	})

	ReactionsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlog_reactions_applied_total",
		Help: "Reaction updates that changed a message.",
	})

	ChannelLogWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlog_channel_log_write_failures_total",
		Help: "Channel log writes that failed after the global log write succeeded.",
	})

	BroadcastsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlog_broadcasts_delivered_total",
		Help: "Events delivered to live subscribers.",
	})

	BroadcastsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlog_broadcasts_dropped_total",
		Help: "Events dropped because a subscriber could not accept them.",
	})

	ReconciledChannels = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlog_reconciled_channels_total",
		Help: "Channel logs materialized from the global log at startup.",
	})
)
