package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/entity"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session"
)

func newEssaysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "essays",
		Aliases: []string{"redacoes"},
		Short:   "Create, inspect and update essays",
	}
	cmd.AddCommand(
		newEssaysListCmd(a),
		newEssaysShowCmd(a),
		newEssaysNewCmd(a),
		newEssaysUpdateCmd(a),
	)
	return cmd
}

func newEssaysListCmd(a *app) *cobra.Command {
	var aluno string
	var mine bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List essays, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mine {
				id, err := a.sessionUserID(cmd)
				if err != nil {
					return err
				}
				aluno = id
			}
			essays, err := a.api.ListEssays(cmd.Context(), aluno)
			if err != nil {
				return fmt.Errorf("listing essays: %w", err)
			}
			if a.asJSON {
				printJSON(a.out, essays)
				return nil
			}
			essayTable(a.out, essays)
			return nil
		},
	}
	cmd.Flags().StringVar(&aluno, "aluno", "", "Only essays of this student id")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only essays of the signed-in user")
	return cmd
}

func newEssaysShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one essay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.api.GetEssay(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetching essay: %w", err)
			}
			if a.asJSON {
				printJSON(a.out, e)
				return nil
			}
			essayDetail(a.out, e)
			return nil
		},
	}
}

func newEssaysNewCmd(a *app) *cobra.Command {
	var in essay.CreateRequest
	var dataFile string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create an essay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Aluno == "" {
				id, err := a.sessionUserID(cmd)
				if err != nil {
					return err
				}
				in.Aluno = id
			}
			if dataFile != "" {
				data, err := readData(cmd, dataFile)
				if err != nil {
					return err
				}
				in.Data = data
			}
			e, err := a.api.CreateEssay(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("creating essay: %w", err)
			}
			if a.asJSON {
				printJSON(a.out, e)
				return nil
			}
			fmt.Fprintf(a.out, "Redação criada: %s (%s)\n", e.Titulo, e.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Titulo, "titulo", "", "Title (default \""+entity.DefaultTitulo+"\")")
	f.StringVar(&in.Turma, "turma", "", "Class id")
	f.StringVar(&in.Aluno, "aluno", "", "Student id (default: signed-in user)")
	f.StringVar(&in.Professor, "professor", "", "Reviewer id (default: server's)")
	f.StringVar(&in.Status, "status", "", "Status (default \""+entity.DefaultStatus+"\")")
	f.StringVar(&dataFile, "data-file", "", "JSON document to store as data ('-' for stdin)")
	return cmd
}

func newEssaysUpdateCmd(a *app) *cobra.Command {
	var titulo, status, turma, professor, dataFile string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of an essay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p entity.Patch
			f := cmd.Flags()
			if f.Changed("titulo") {
				p.Titulo = &titulo
			}
			if f.Changed("status") {
				p.Status = &status
			}
			if f.Changed("turma") {
				p.Turma = &turma
			}
			if f.Changed("professor") {
				p.Professor = &professor
			}
			if dataFile != "" {
				data, err := readData(cmd, dataFile)
				if err != nil {
					return err
				}
				p.Data = data
			}
			if p.Titulo == nil && p.Status == nil && p.Turma == nil && p.Professor == nil && !p.HasData() {
				return errors.New("nothing to update")
			}
			e, err := a.api.UpdateEssay(cmd.Context(), args[0], p)
			if err != nil {
				return fmt.Errorf("updating essay: %w", err)
			}
			if a.asJSON {
				printJSON(a.out, e)
				return nil
			}
			essayDetail(a.out, e)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&titulo, "titulo", "", "New title")
	f.StringVar(&status, "status", "", "New status")
	f.StringVar(&turma, "turma", "", "New class id")
	f.StringVar(&professor, "professor", "", "New reviewer id")
	f.StringVar(&dataFile, "data-file", "", "JSON document to store as data ('-' for stdin)")
	return cmd
}

// sessionUserID is the id of the locally signed-in user.
func (a *app) sessionUserID(cmd *cobra.Command) (string, error) {
	e := a.cache.Read(cmd.Context(), session.DefaultKey)
	if e == nil || e.ID == "" {
		return "", errors.New("no local session — run \"redacao login\" or pass --aluno")
	}
	return e.ID, nil
}

func readData(cmd *cobra.Command, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}
	if _, err := entity.DecodePayload(data); err != nil {
		return nil, fmt.Errorf("data is not a valid essay document: %w", err)
	}
	return data, nil
}
