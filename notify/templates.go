package notify

import "html/template"

var templates = template.Must(template.New("notify").Parse(`
{{define "details"}}<table>
  <tr><th>Workspace ID</th><td>{{.WorkspaceID}}</td></tr>
  <tr><th>Workspace Machine Name</th><td>{{.ComputerName}}</td></tr>
  <tr><th>User Name</th><td>{{.UserName}}</td></tr>
  <tr><th>Email</th><td>{{.Email}}</td></tr>
  <tr><th>Last Connection</th><td>{{.LastConnection}}</td></tr>
</table>{{end}}

{{define "warn"}}<p>Hello, your workspace has not been logged into for {{.Thresholds.WarnDays}} days. In {{.DaysRemaining}} days, your Workspace will be deleted and will be irrecoverable. Please contact support if you plan to actively use this machine.</p>
{{template "details" .}}{{end}}

{{define "terminated-never-used"}}<p>Hello, your workspace has not been used in the {{.Thresholds.NeverUsedGraceDays}} days since its creation and has been deleted. Please contact the Workspaces Team if you need a new Workspace.</p>
{{template "details" .}}{{end}}

{{define "terminated-idle"}}<p>Hello, your workspace has not been used for {{.Thresholds.CutoffDays}} days and has been deleted. Please submit a ticket or contact the Workspaces Team if you need a new Workspace.</p>
{{template "details" .}}{{end}}
`))
