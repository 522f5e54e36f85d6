package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spigell/talenthub/internal/talent"
)

type candidatesResponse struct {
	Total      int                 `json:"total"`
	Candidates []*talent.Candidate `json:"candidates"`
	Steps      []talent.Step       `json:"steps"`
}

// handleCandidates filters the directory with search, role, minExperience
// and minScore query parameters.
func (s *Server) handleCandidates(c *fiber.Ctx) error {
	var q talent.Query
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}

	found, steps, err := s.talent.Search(c.UserContext(), s.logger, q)
	if err != nil {
		return err
	}

	return c.JSON(candidatesResponse{Total: found.Len(), Candidates: found.Items, Steps: steps})
}

func (s *Server) handleRoles(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"roles": append([]string{talent.AllRoles}, s.talent.Roles()...)})
}
