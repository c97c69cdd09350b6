package main

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/numenera-api/internal/entities/numenera"
	"github.com/KirkDiggler/numenera-api/internal/errors"
)

// actorFile is the layout of seed and calculator actor files
type actorFile struct {
	Actors []*numenera.Actor `yaml:"actors"`
}

func loadActorFile(path string) ([]*numenera.Actor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open actor file %s", path)
	}
	defer func() { _ = f.Close() }()

	return loadActors(f)
}

// loadActors decodes and validates an actor file. Unknown fields are rejected.
func loadActors(r io.Reader) ([]*numenera.Actor, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file actorFile
	if err := dec.Decode(&file); err != nil {
		return nil, errors.InvalidArgumentf("failed to decode actor file: %v", err)
	}
	if len(file.Actors) == 0 {
		return nil, errors.InvalidArgument("actor file contains no actors")
	}

	for i, actor := range file.Actors {
		if actor == nil {
			return nil, errors.InvalidArgumentf("actor %d is empty", i)
		}
		if err := actor.Validate(); err != nil {
			return nil, errors.Wrapf(err, "actor %d (%s)", i, actor.ID)
		}
	}

	return file.Actors, nil
}

// findActor picks the actor by ID, or the only actor when id is blank
func findActor(actors []*numenera.Actor, id string) (*numenera.Actor, error) {
	if id == "" {
		if len(actors) == 1 {
			return actors[0], nil
		}
		return nil, errors.InvalidArgument("--actor-id is required when the file holds several actors")
	}

	for _, actor := range actors {
		if actor.ID == id {
			return actor, nil
		}
	}
	return nil, errors.NotFoundf("actor %s not in file", id)
}
