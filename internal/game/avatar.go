package game

import "math/rand"

var avatars = []string{
	"skeleton-happy.svg",
	"pumpkin-spooky.svg",
	"pumpkin-happy.svg",
	"spider-cute.svg",
	"ghost-shy.svg",
	"ghost-cute.svg",
	"vampire-cute.svg",
	"mummy-wrapped.svg",
	"bat-flying.svg",
	"candy-corn.svg",
	"witch-hat.svg",
	"cat-black.svg",
}

// AssignRandomAvatar picks an avatar tag for a newly joined player.
func AssignRandomAvatar() string {
	return avatars[rand.Intn(len(avatars))]
}
