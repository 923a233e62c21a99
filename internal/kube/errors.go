package kube

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"botfleet/internal/api"
)

// translate maps a control-plane error onto the botfleet error taxonomy.
func translate(operation, resourceType, name string, err error) error {
	switch {
	case apierrors.IsNotFound(err):
		return api.NewNotFoundError(resourceType, name)
	case apierrors.IsAlreadyExists(err):
		return api.NewConflictError(fmt.Sprintf("%s %s already exists", resourceType, name), err)
	case apierrors.IsConflict(err):
		return api.NewConflictError(fmt.Sprintf("%s %s was modified concurrently, retry the operation", resourceType, name), err)
	}

	var status apierrors.APIStatus
	if errors.As(err, &status) {
		return api.NewUpstreamError(operation, int(status.Status().Code), err)
	}
	return api.NewUpstreamError(operation, 0, err)
}

func isNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

func isAlreadyExists(err error) bool {
	return apierrors.IsAlreadyExists(err)
}
