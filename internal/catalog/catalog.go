// Package catalog holds the fixed set of achievements seeded on first start.
package catalog

import "github.com/and161185/trophycase/internal/model"

// Registration is unlocked for every new user as part of sign-up.
const Registration = "With Registration!"

// Achievements returns a fresh copy of the seed catalog.
func Achievements() []model.Achievement {
	return []model.Achievement{
		{Name: Registration, Description: "Create an account.", IconPath: "/icons/registration.svg", Category: "Getting Started"},
		{Name: "Welcome Back", Description: "Log in again after your first visit.", IconPath: "/icons/welcome-back.svg", Category: "Getting Started"},
		{Name: "Explorer", Description: "Visit every page of the site.", IconPath: "/icons/explorer.svg", Category: "Exploration"},
		{Name: "Bookworm", Description: "Read the about page to the very end.", IconPath: "/icons/bookworm.svg", Category: "Exploration"},
		{Name: "Night Owl", Description: "Drop by between midnight and 4 a.m.", IconPath: "/icons/night-owl.svg", Category: "Exploration"},
		{Name: "Konami Code", Description: "You know the one.", IconPath: "/icons/konami.svg", Category: "Secrets"},
		{Name: "Pixel Hunter", Description: "Find the hidden pixel.", IconPath: "/icons/pixel-hunter.svg", Category: "Secrets"},
		{Name: "Completionist", Description: "Unlock every other achievement.", IconPath: "/icons/completionist.svg", Category: "Secrets"},
	}
}
