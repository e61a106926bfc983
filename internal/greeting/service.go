// Package greeting composes the opening message of a session from user
// memory: first-time visitors get an introduction, returning users get a
// welcome back that picks up their last topic.
package greeting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleetassist/backend/internal/memory"
	"github.com/fleetassist/backend/internal/prompt"
	"github.com/fleetassist/backend/internal/storage/models"
	"github.com/fleetassist/backend/pkg/logger"
)

// frequentVisitorMin is the interaction count at which a user counts as a
// regular.
const frequentVisitorMin = 5

// Greeting is the composed opening message.
type Greeting struct {
	Message           string `json:"message"`
	DiscoveryQuestion string `json:"discovery_question"`
	IsReturningUser   bool   `json:"is_returning_user"`
}

type Service struct {
	memory *memory.Service
}

func NewService(mem *memory.Service) *Service {
	return &Service{memory: mem}
}

// Greet builds the greeting for a user. Memory failures degrade to the
// anonymous first-time greeting.
func (s *Service) Greet(ctx context.Context, userID string) Greeting {
	profile, err := s.memory.GetProfile(ctx, userID)
	if err != nil {
		logger.Warn("failed to load profile for greeting",
			zap.String("user_id", userID),
			zap.Error(err))
		profile = &models.UserProfile{ID: userID}
	}

	name := memory.DisplayName(profile)
	topic := memory.LastTopic(profile)
	if topic == "" {
		topic = "general"
	}

	return Greeting{
		Message:           s.message(profile, name, topic),
		DiscoveryQuestion: prompt.DiscoveryQuestion(topic, profile.InteractionCount),
		IsReturningUser:   profile.InteractionCount > 0,
	}
}

func (s *Service) message(profile *models.UserProfile, name, topic string) string {
	switch {
	case profile.InteractionCount == 0 && name != "":
		return fmt.Sprintf("Hi %s! I'm the FleetAssist support assistant. I can help with vehicles, maintenance, fuel tracking, reports and your account. What can I do for you?", name)

	case profile.InteractionCount == 0:
		return "Hi! I'm the FleetAssist support assistant. I can help with vehicles, maintenance, fuel tracking, reports and your account. What can I do for you?"

	case profile.InteractionCount >= frequentVisitorMin && name != "":
		return fmt.Sprintf("Welcome back, %s! Always good to see you. Last time we talked about %s. What's on your mind today?", name, topicLabel(topic))

	case name != "":
		return fmt.Sprintf("Welcome back, %s! How can I help you today?", name)

	default:
		return "Welcome back! How can I help you today?"
	}
}

// topicLabel renders an internal topic id as readable text.
func topicLabel(topic string) string {
	switch topic {
	case "vehicle_management":
		return "managing your vehicles"
	case "maintenance":
		return "maintenance scheduling"
	case "fuel_tracking":
		return "fuel tracking"
	case "password_help":
		return "account access"
	case "registration":
		return "getting set up"
	default:
		return "your fleet"
	}
}
