package server

import (
	"thaitanloi365/picture-protector/facebluring"
	"thaitanloi365/picture-protector/protector"
)

type FaceRequest struct {
	Blur *bool `json:"blur"`
}

type SetAllRequest struct {
	Blur *bool `json:"blur" validate:"required"`
}

type TapRequest struct {
	X          float64 `json:"x" validate:"gte=0"`
	Y          float64 `json:"y" validate:"gte=0"`
	ViewWidth  float64 `json:"view_width" validate:"gt=0,lte=16384"`
	ViewHeight float64 `json:"view_height" validate:"gt=0,lte=16384"`
}

type PhotoResponse struct {
	Data protector.Snapshot `json:"data"`
}

type FacesResponse struct {
	Faces []facebluring.Face `json:"faces"`
}

type FaceResponse struct {
	Index int              `json:"index"`
	Face  facebluring.Face `json:"face"`
}

type ShareResponse struct {
	Location string `json:"location"`
}
