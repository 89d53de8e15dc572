package client

import (
	"context"

	"dialogue-tutor/work-flows/models"
)

// TutorClient performs the three exchanges with the Tutoring Service.
type TutorClient interface {
	StartDialogue(ctx context.Context, req models.StartDialogueRequest) (*models.StartDialogueResponse, error)
	Respond(ctx context.Context, req models.RespondRequest) (*models.RespondResponse, error)
	Review(ctx context.Context, req models.ReviewRequest) (*models.Review, error)
}
