package objectstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Mindburn-Labs/workspace-engine/pkg/persistence/objectstore"
)

func TestNewS3Store_StaticAuthWithoutCredentialsFailsConfiguration(t *testing.T) {
	_, err := objectstore.NewS3Store(context.Background(), objectstore.Config{
		BucketPrefix: "si",
		CacheName:    "func_runs",
		Region:       "us-east-1",
		Auth:         objectstore.AuthModeStatic,
	})
	if err == nil {
		t.Fatal("expected an error when static auth is selected without credentials")
	}
	var oerr *objectstore.Error
	if !errors.As(err, &oerr) {
		t.Fatalf("expected an *objectstore.Error, got %T", err)
	}
	if oerr.Kind != objectstore.KindConfiguration {
		t.Errorf("got %s, want Configuration", oerr.Kind)
	}
}
