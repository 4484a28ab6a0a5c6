package patient

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/format"
	"github.com/jwalitptl/practice-api/pkg/spreadsheet"
)

var genderLabels = map[model.Gender]string{
	model.GenderMale:        "Masculino",
	model.GenderFemale:      "Feminino",
	model.GenderOther:       "Outro",
	model.GenderNotInformed: "Não informado",
}

var statusLabels = map[model.PatientStatus]string{
	model.PatientStatusActive:   "Ativo",
	model.PatientStatusInactive: "Inativo",
	model.PatientStatusArchived: "Arquivado",
}

var errShortName = apperrors.Validation("full_name must have at least 2 characters")

type Service struct {
	repo repository.PatientRepository
	loc  *time.Location
	now  func() time.Time
}

// NewService evaluates ages in loc.
func NewService(repo repository.PatientRepository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, req *model.CreatePatientRequest) (*model.Patient, error) {
	name, ok := format.Name(req.FullName)
	if !ok {
		return nil, errShortName
	}
	birth, err := s.parseBirthDate(req.BirthDate)
	if err != nil {
		return nil, err
	}

	p := &model.Patient{
		Base:             model.Base{ID: uuid.New()},
		DoctorID:         doctorID,
		FullName:         name,
		BirthDate:        birth,
		Gender:           req.Gender,
		Email:            req.Email,
		Phone:            format.PhonePtr(req.Phone),
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
		ChiefComplaint:   req.ChiefComplaint,
		FamilyHistory:    req.FamilyHistory,
		Medications:      req.Medications,
		Allergies:        req.Allergies,
		Notes:            req.Notes,
		Status:           model.PatientStatusActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.withAge(p), nil
}

// Get returns the patient only when it belongs to doctorID.
func (s *Service) Get(ctx context.Context, doctorID, id uuid.UUID) (*model.Patient, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, err
	}
	if p.DoctorID != doctorID {
		return nil, apperrors.NotFound("patient", nil)
	}
	return s.withAge(p), nil
}

func (s *Service) Update(ctx context.Context, doctorID, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	p, err := s.Get(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name, ok := format.Name(*req.FullName)
		if !ok {
			return nil, errShortName
		}
		p.FullName = name
	}
	if req.BirthDate != nil {
		if p.BirthDate, err = s.parseBirthDate(*req.BirthDate); err != nil {
			return nil, err
		}
	}
	if req.Gender != nil {
		p.Gender = *req.Gender
	}
	if req.Email != nil {
		p.Email = req.Email
	}
	if req.Phone != nil {
		p.Phone = format.PhonePtr(req.Phone)
	}
	if req.Address != nil {
		p.Address = req.Address
	}
	if req.EmergencyContact != nil {
		p.EmergencyContact = req.EmergencyContact
	}
	if req.ChiefComplaint != nil {
		p.ChiefComplaint = req.ChiefComplaint
	}
	if req.FamilyHistory != nil {
		p.FamilyHistory = req.FamilyHistory
	}
	if req.Medications != nil {
		p.Medications = req.Medications
	}
	if req.Allergies != nil {
		p.Allergies = req.Allergies
	}
	if req.Notes != nil {
		p.Notes = req.Notes
	}
	if req.Status != nil {
		p.Status = *req.Status
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.withAge(p), nil
}

// Archive is the soft delete: the row stays with status archived.
func (s *Service) Archive(ctx context.Context, doctorID, id uuid.UUID) error {
	if _, err := s.Get(ctx, doctorID, id); err != nil {
		return err
	}
	return s.repo.Archive(ctx, id)
}

// Delete removes the row.
func (s *Service) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	if _, err := s.Get(ctx, doctorID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	patients, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, p := range patients {
		s.withAge(p)
	}
	return patients, nil
}

// Export writes the filtered list as an XLSX workbook.
func (s *Service) Export(ctx context.Context, filter *model.PatientFilter, w io.Writer) error {
	patients, err := s.List(ctx, filter)
	if err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(patients))
	for _, p := range patients {
		rows = append(rows, []interface{}{
			p.FullName,
			p.BirthDate.Format("02/01/2006"),
			p.Age,
			label(genderLabels, p.Gender),
			spreadsheet.Deref(p.Email),
			spreadsheet.Deref(p.Phone),
			label(statusLabels, p.Status),
			p.CreatedAt.In(s.loc).Format("02/01/2006 15:04"),
		})
	}
	return spreadsheet.Write(w, "Pacientes", []string{
		"Nome", "Data de nascimento", "Idade", "Gênero", "E-mail", "Telefone", "Status", "Cadastrado em",
	}, rows)
}

func (s *Service) withAge(p *model.Patient) *model.Patient {
	p.Age = format.Age(p.BirthDate, s.now().In(s.loc))
	return p
}

func (s *Service) parseBirthDate(raw string) (time.Time, error) {
	birth, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return time.Time{}, apperrors.Validation("birth_date must be YYYY-MM-DD")
	}
	today := s.now().In(s.loc).Format(model.DateLayout)
	if birth.Format(model.DateLayout) > today {
		return time.Time{}, apperrors.Validation("birth_date cannot be in the future")
	}
	return birth, nil
}

func label[K ~string](table map[K]string, code K) string {
	if l, ok := table[code]; ok {
		return l
	}
	return string(code)
}
