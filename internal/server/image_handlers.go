package server

import (
	"io"
	"mime/multipart"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// readUpload reads the multipart "file" field. On failure it writes a 400
// response and returns errResponseWritten.
func (s *Server) readUpload(c *fiber.Ctx) (*multipart.FileHeader, []byte, error) {
	file, err := c.FormFile("file")
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
		return nil, nil, errResponseWritten
	}

	src, err := file.Open()
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
		return nil, nil, errResponseWritten
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
		return nil, nil, errResponseWritten
	}

	return file, content, nil
}

// UploadProfileImage handles POST /api/image/upload
// @Summary Upload or replace the caller's profile image
// @Tags image
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Success 201 {object} models.Image
// @Failure 400 {object} models.ErrorResponse
// @Router /image/upload [post]
func (s *Server) UploadProfileImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	file, content, err := s.readUpload(c)
	if err != nil {
		return nil
	}

	img, err := s.imageService.UploadProfileImage(c.UserContext(), service.UploadImageInput{
		UserID:      userID,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(img)
}

// GetProfileImage handles GET /api/image/profileImage
// @Summary Fetch the caller's profile image
// @Tags image
// @Produce image/webp
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /image/profileImage [get]
func (s *Server) GetProfileImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	img, data, err := s.imageService.GetProfileImage(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	c.Set(fiber.HeaderContentType, img.ContentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+img.Name+`"`)
	return c.Send(data)
}

// GetUserProfileImage handles GET /api/image/profileImage/:userId
// @Summary Fetch another user's profile image
// @Tags image
// @Produce image/webp
// @Param userId path int true "User ID"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /image/profileImage/{userId} [get]
func (s *Server) GetUserProfileImage(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	img, data, err := s.imageService.GetProfileImage(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	c.Set(fiber.HeaderContentType, img.ContentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+img.Name+`"`)
	return c.Send(data)
}

// DeleteProfileImage handles DELETE /api/image/delete
// @Summary Delete the caller's profile image
// @Description Succeeds even when no profile image exists
// @Tags image
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /image/delete [delete]
func (s *Server) DeleteProfileImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if err := s.imageService.DeleteProfileImage(c.UserContext(), userID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{"message": "Profile image deleted"})
}

// UploadPostImage handles POST /api/image/:postId/upload
// @Summary Upload or replace the image of a post the caller owns
// @Tags image
// @Accept multipart/form-data
// @Produce json
// @Param postId path int true "Post ID"
// @Param file formData file true "Image file"
// @Success 201 {object} models.Image
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /image/{postId}/upload [post]
func (s *Server) UploadPostImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	file, content, err := s.readUpload(c)
	if err != nil {
		return nil
	}

	img, err := s.imageService.UploadPostImage(c.UserContext(), service.UploadPostImageInput{
		UploadImageInput: service.UploadImageInput{
			UserID:      userID,
			Filename:    file.Filename,
			ContentType: file.Header.Get("Content-Type"),
			Content:     content,
		},
		PostID: postID,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(img)
}

// GetPostImage handles GET /api/image/:postId/image
// @Summary Fetch a post's image
// @Tags image
// @Produce image/webp
// @Param postId path int true "Post ID"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /image/{postId}/image [get]
func (s *Server) GetPostImage(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	img, data, err := s.imageService.GetPostImage(c.UserContext(), postID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	c.Set(fiber.HeaderContentType, img.ContentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+img.Name+`"`)
	return c.Send(data)
}
