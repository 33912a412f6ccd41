package models

import (
	"database/sql"

	"github.com/google/uuid"
)

// Person is an actor, writer or director.
type Person struct {
	id        uuid.UUID
	fullName  sql.NullString
	birthDate sql.NullTime
	createdAt sql.NullTime
	updatedAt sql.NullTime
}

func buildPerson(r *row) Recordable {
	return &Person{
		id:        r.uuid(0),
		fullName:  r.nullText(1),
		birthDate: r.nullTime(2),
		createdAt: r.nullTime(3),
		updatedAt: r.nullTime(4),
	}
}

// Entity returns PersonEntity.
func (p *Person) Entity() *Entity { return PersonEntity }

// ID returns the person id.
func (p *Person) ID() uuid.UUID { return p.id }

// FullName returns the person's full name.
func (p *Person) FullName() string { return p.fullName.String }

// Values returns the fields in PersonEntity.Columns order.
func (p *Person) Values() []any {
	return []any{
		p.id.String(),
		textValue(p.fullName),
		timeValue(p.birthDate),
		timeValue(p.createdAt),
		timeValue(p.updatedAt),
	}
}

// PersonFilmWork links a person to a film work under a free-text role.
type PersonFilmWork struct {
	id         uuid.UUID
	filmWorkID uuid.UUID
	personID   uuid.UUID
	role       sql.NullString
	createdAt  sql.NullTime
}

func buildPersonFilmWork(r *row) Recordable {
	return &PersonFilmWork{
		id:         r.uuid(0),
		filmWorkID: r.uuid(1),
		personID:   r.uuid(2),
		role:       r.nullText(3),
		createdAt:  r.nullTime(4),
	}
}

// Entity returns PersonFilmWorkEntity.
func (p *PersonFilmWork) Entity() *Entity { return PersonFilmWorkEntity }

// ID returns the link id.
func (p *PersonFilmWork) ID() uuid.UUID { return p.id }

// FilmWorkID returns the linked film work.
func (p *PersonFilmWork) FilmWorkID() uuid.UUID { return p.filmWorkID }

// PersonID returns the linked person.
func (p *PersonFilmWork) PersonID() uuid.UUID { return p.personID }

// Role returns the free-text role, such as actor or director.
func (p *PersonFilmWork) Role() string { return p.role.String }

// Values returns the fields in PersonFilmWorkEntity.Columns order.
func (p *PersonFilmWork) Values() []any {
	return []any{
		p.id.String(),
		p.filmWorkID.String(),
		p.personID.String(),
		textValue(p.role),
		timeValue(p.createdAt),
	}
}
