package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/estatehq/estatectl/internal/api"
	"github.com/estatehq/estatectl/internal/session"
)

// Admin resources are handled as generic documents: every collection gets
// list/get/apply/delete with the same flags, differing only in URL segment
// and required capability.

// ListCmd is the shared shape of every resource listing.
type ListCmd struct {
	Page    int    `help:"Page number" default:"1"`
	PerPage int    `help:"Items per page" default:"20"`
	Search  string `help:"Filter by search term"`
}

func (l *ListCmd) run(ctx context.Context, globals *Globals, resource, permission string) error {
	a, err := globals.connect(false)
	if err != nil {
		return err
	}
	defer a.session.Close()

	if err := requirePermission(a, resource, permission); err != nil {
		return err
	}

	page, err := a.client.ListResource(ctx, resource, api.ListParams{
		Page:    l.Page,
		PerPage: l.PerPage,
		Search:  l.Search,
	})
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", resource, err)
	}

	if len(page.Items) == 0 {
		fmt.Printf("No %s found.\n", resource)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
	for _, item := range page.Items {
		fmt.Fprintf(w, "%v\t%s\t%v\n", item["id"], itemTitle(item), itemField(item, "updated_at"))
	}
	w.Flush()

	if page.LastPage > 1 {
		fmt.Printf("\nPage %d/%d (%d total)\n", page.Page, page.LastPage, page.Total)
		if page.Page < page.LastPage {
			fmt.Printf("Use --page=%d to see the next page\n", page.Page+1)
		}
	}

	return nil
}

// GetCmd fetches one document and prints it as YAML, ready to edit and feed
// back to apply.
type GetCmd struct {
	ID int64 `arg:"" help:"Resource id"`
}

func (g *GetCmd) run(ctx context.Context, globals *Globals, resource, permission string) error {
	a, err := globals.connect(false)
	if err != nil {
		return err
	}
	defer a.session.Close()

	if err := requirePermission(a, resource, permission); err != nil {
		return err
	}

	doc, err := a.client.GetResource(ctx, resource, g.ID)
	if err != nil {
		if api.IsNotFound(err) {
			return fmt.Errorf("%s %d not found", resource, g.ID)
		}
		return fmt.Errorf("failed to get %s %d: %w", resource, g.ID, err)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", resource, err)
	}
	fmt.Print(string(out))

	return nil
}

// ApplyCmd creates or updates a document from a YAML file. A payload with an
// id field updates that resource, one without creates a new resource.
type ApplyCmd struct {
	File string `arg:"" help:"YAML file with the resource payload" type:"existingfile"`
}

func (ap *ApplyCmd) run(ctx context.Context, globals *Globals, resource, permission string) error {
	data, err := os.ReadFile(ap.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", ap.File, err)
	}

	var payload map[string]any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", ap.File, err)
	}

	a, err := globals.connect(false)
	if err != nil {
		return err
	}
	defer a.session.Close()

	if err := requirePermission(a, resource, permission); err != nil {
		return err
	}

	if rawID, ok := payload["id"]; ok {
		id, ok := asID(rawID)
		if !ok {
			return fmt.Errorf("invalid id %v in %s", rawID, ap.File)
		}
		delete(payload, "id")

		doc, err := a.client.UpdateResource(ctx, resource, id, payload)
		if err != nil {
			return applyError(resource, err)
		}
		fmt.Printf("Updated %s %v.\n", resource, doc["id"])
		return nil
	}

	doc, err := a.client.CreateResource(ctx, resource, payload)
	if err != nil {
		return applyError(resource, err)
	}
	fmt.Printf("Created %s %v.\n", resource, doc["id"])
	return nil
}

// DeleteCmd deletes one document, asking for confirmation unless forced.
type DeleteCmd struct {
	ID    int64 `arg:"" help:"Resource id"`
	Force bool  `help:"Skip confirmation" default:"false"`
}

func (d *DeleteCmd) run(ctx context.Context, globals *Globals, resource, permission string) error {
	a, err := globals.connect(false)
	if err != nil {
		return err
	}
	defer a.session.Close()

	if err := requirePermission(a, resource, permission); err != nil {
		return err
	}

	if !d.Force && !confirm(fmt.Sprintf("Delete %s %d?", resource, d.ID)) {
		fmt.Println("Aborted.")
		return nil
	}

	if err := a.client.DeleteResource(ctx, resource, d.ID); err != nil {
		if api.IsNotFound(err) {
			return fmt.Errorf("%s %d not found", resource, d.ID)
		}
		return fmt.Errorf("failed to delete %s %d: %w", resource, d.ID, err)
	}

	fmt.Printf("Deleted %s %d.\n", resource, d.ID)
	return nil
}

func requirePermission(a *app, resource, permission string) error {
	if !a.session.IsAuthenticated() {
		return fmt.Errorf("not logged in\n\nRun 'estatectl login <email>' to sign in")
	}
	if !a.session.HasPermission(permission) {
		role := a.session.CurrentUser().Role
		return fmt.Errorf("role %q is not allowed to manage %s", role, resource)
	}
	return nil
}

func applyError(resource string, err error) error {
	if api.IsValidation(err) {
		printFieldErrors(err)
		return fmt.Errorf("%s payload rejected", resource)
	}
	return fmt.Errorf("failed to save %s: %w", resource, err)
}

// itemTitle picks a human-readable column for generic listings.
func itemTitle(item map[string]any) string {
	for _, key := range []string{"title", "name", "label", "email"} {
		if v := itemField(item, key); v != "" {
			return v
		}
	}
	return ""
}

func itemField(item map[string]any, key string) string {
	if v, ok := item[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func asID(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// One command tree per admin resource, all sharing the generic verbs above.

type PostsCmd struct {
	List   PostsList   `cmd:"" help:"List posts"`
	Get    PostsGet    `cmd:"" help:"Show a post"`
	Apply  PostsApply  `cmd:"" help:"Create or update a post from a YAML file"`
	Delete PostsDelete `cmd:"" help:"Delete a post"`
}

type (
	PostsList   struct{ ListCmd }
	PostsGet    struct{ GetCmd }
	PostsApply  struct{ ApplyCmd }
	PostsDelete struct{ DeleteCmd }
)

func (c *PostsList) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "posts", session.PermManagePosts)
}
func (c *PostsGet) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "posts", session.PermManagePosts)
}
func (c *PostsApply) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "posts", session.PermManagePosts)
}
func (c *PostsDelete) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "posts", session.PermManagePosts)
}

type PagesCmd struct {
	List   PagesList   `cmd:"" help:"List pages"`
	Get    PagesGet    `cmd:"" help:"Show a page"`
	Apply  PagesApply  `cmd:"" help:"Create or update a page from a YAML file"`
	Delete PagesDelete `cmd:"" help:"Delete a page"`
}

type (
	PagesList   struct{ ListCmd }
	PagesGet    struct{ GetCmd }
	PagesApply  struct{ ApplyCmd }
	PagesDelete struct{ DeleteCmd }
)

func (c *PagesList) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "pages", session.PermManagePages)
}
func (c *PagesGet) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "pages", session.PermManagePages)
}
func (c *PagesApply) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "pages", session.PermManagePages)
}
func (c *PagesDelete) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "pages", session.PermManagePages)
}

type TagsCmd struct {
	List   TagsList   `cmd:"" help:"List tags"`
	Get    TagsGet    `cmd:"" help:"Show a tag"`
	Apply  TagsApply  `cmd:"" help:"Create or update a tag from a YAML file"`
	Delete TagsDelete `cmd:"" help:"Delete a tag"`
}

type (
	TagsList   struct{ ListCmd }
	TagsGet    struct{ GetCmd }
	TagsApply  struct{ ApplyCmd }
	TagsDelete struct{ DeleteCmd }
)

func (c *TagsList) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "tags", session.PermManageTags)
}
func (c *TagsGet) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "tags", session.PermManageTags)
}
func (c *TagsApply) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "tags", session.PermManageTags)
}
func (c *TagsDelete) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "tags", session.PermManageTags)
}

type EmployeesCmd struct {
	List   EmployeesList   `cmd:"" help:"List employees"`
	Get    EmployeesGet    `cmd:"" help:"Show an employee"`
	Apply  EmployeesApply  `cmd:"" help:"Create or update an employee from a YAML file"`
	Delete EmployeesDelete `cmd:"" help:"Delete an employee"`
}

type (
	EmployeesList   struct{ ListCmd }
	EmployeesGet    struct{ GetCmd }
	EmployeesApply  struct{ ApplyCmd }
	EmployeesDelete struct{ DeleteCmd }
)

func (c *EmployeesList) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "employees", session.PermManageEmployees)
}
func (c *EmployeesGet) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "employees", session.PermManageEmployees)
}
func (c *EmployeesApply) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "employees", session.PermManageEmployees)
}
func (c *EmployeesDelete) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "employees", session.PermManageEmployees)
}

type TestimonialsCmd struct {
	List   TestimonialsList   `cmd:"" help:"List testimonials"`
	Get    TestimonialsGet    `cmd:"" help:"Show a testimonial"`
	Apply  TestimonialsApply  `cmd:"" help:"Create or update a testimonial from a YAML file"`
	Delete TestimonialsDelete `cmd:"" help:"Delete a testimonial"`
}

type (
	TestimonialsList   struct{ ListCmd }
	TestimonialsGet    struct{ GetCmd }
	TestimonialsApply  struct{ ApplyCmd }
	TestimonialsDelete struct{ DeleteCmd }
)

func (c *TestimonialsList) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "testimonials", session.PermManageTestimonials)
}
func (c *TestimonialsGet) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "testimonials", session.PermManageTestimonials)
}
func (c *TestimonialsApply) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "testimonials", session.PermManageTestimonials)
}
func (c *TestimonialsDelete) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "testimonials", session.PermManageTestimonials)
}

type PartnersCmd struct {
	List   PartnersList   `cmd:"" help:"List partners"`
	Get    PartnersGet    `cmd:"" help:"Show a partner"`
	Apply  PartnersApply  `cmd:"" help:"Create or update a partner from a YAML file"`
	Delete PartnersDelete `cmd:"" help:"Delete a partner"`
}

type (
	PartnersList   struct{ ListCmd }
	PartnersGet    struct{ GetCmd }
	PartnersApply  struct{ ApplyCmd }
	PartnersDelete struct{ DeleteCmd }
)

func (c *PartnersList) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "partners", session.PermManagePartners)
}
func (c *PartnersGet) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "partners", session.PermManagePartners)
}
func (c *PartnersApply) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "partners", session.PermManagePartners)
}
func (c *PartnersDelete) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "partners", session.PermManagePartners)
}

type MenusCmd struct {
	List   MenusList   `cmd:"" help:"List menus"`
	Get    MenusGet    `cmd:"" help:"Show a menu"`
	Apply  MenusApply  `cmd:"" help:"Create or update a menu from a YAML file"`
	Delete MenusDelete `cmd:"" help:"Delete a menu"`
}

type (
	MenusList   struct{ ListCmd }
	MenusGet    struct{ GetCmd }
	MenusApply  struct{ ApplyCmd }
	MenusDelete struct{ DeleteCmd }
)

func (c *MenusList) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "menus", session.PermManageMenus)
}
func (c *MenusGet) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "menus", session.PermManageMenus)
}
func (c *MenusApply) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "menus", session.PermManageMenus)
}
func (c *MenusDelete) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "menus", session.PermManageMenus)
}

type AdminsCmd struct {
	List   AdminsList   `cmd:"" help:"List admin accounts"`
	Get    AdminsGet    `cmd:"" help:"Show an admin account"`
	Apply  AdminsApply  `cmd:"" help:"Create or update an admin account from a YAML file"`
	Delete AdminsDelete `cmd:"" help:"Delete an admin account"`
}

type (
	AdminsList   struct{ ListCmd }
	AdminsGet    struct{ GetCmd }
	AdminsApply  struct{ ApplyCmd }
	AdminsDelete struct{ DeleteCmd }
)

func (c *AdminsList) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "admins", session.PermManageAdmins)
}
func (c *AdminsGet) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "admins", session.PermManageAdmins)
}
func (c *AdminsApply) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "admins", session.PermManageAdmins)
}
func (c *AdminsDelete) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "admins", session.PermManageAdmins)
}

type UsersCmd struct {
	List   UsersList   `cmd:"" help:"List users"`
	Get    UsersGet    `cmd:"" help:"Show a user"`
	Apply  UsersApply  `cmd:"" help:"Create or update a user from a YAML file"`
	Delete UsersDelete `cmd:"" help:"Delete a user"`
}

type (
	UsersList   struct{ ListCmd }
	UsersGet    struct{ GetCmd }
	UsersApply  struct{ ApplyCmd }
	UsersDelete struct{ DeleteCmd }
)

func (c *UsersList) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "users", session.PermManageUsers)
}
func (c *UsersGet) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "users", session.PermManageUsers)
}
func (c *UsersApply) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "users", session.PermManageUsers)
}
func (c *UsersDelete) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, "users", session.PermManageUsers)
}
