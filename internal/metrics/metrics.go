package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GroupsCreated counts groups successfully created.
	GroupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huddled_groups_created_total",
		Help: "Number of groups created.",
	})

	// MembersJoined counts successful joins, creator enrollment included.
	MembersJoined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huddled_members_joined_total",
		Help: "Number of group memberships created.",
	})

	// InviteCodeCollisions counts invite-code allocation retries caused by
	// an already-taken code.
	InviteCodeCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huddled_invite_code_collisions_total",
		Help: "Number of invite code allocation retries due to collisions.",
	})
)
